package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/wire"
)

// SearchService implements wire.SearchServer over a backend that opts into
// backend.SearchCapability.
type SearchService struct {
	capability backend.SearchCapability
}

// NewSearchService creates a SearchService. Every RPC responds Unimplemented
// if b does not implement backend.SearchCapability.
func NewSearchService(b backend.Backend) *SearchService {
	cap, _ := b.(backend.SearchCapability)
	return &SearchService{capability: cap}
}

var _ wire.SearchServer = (*SearchService)(nil)

func toWireHits(hits []backend.SearchHit) []wire.SearchHit {
	out := make([]wire.SearchHit, len(hits))
	for i, h := range hits {
		props := make(map[string]*wire.Value, len(h.Properties))
		for k, v := range h.Properties {
			props[k] = wire.ToWire(v)
		}
		out[i] = wire.SearchHit{NodeID: h.NodeID, Score: h.Score, Properties: props}
	}
	return out
}

func (s *SearchService) requireCapability() error {
	if s.capability == nil {
		return status.Error(codes.Unimplemented, "search operations not supported")
	}
	return nil
}

func (s *SearchService) VectorSearch(ctx context.Context, req *wire.VectorSearchRequest) (*wire.VectorSearchResponse, error) {
	if err := s.requireCapability(); err != nil {
		return nil, err
	}
	if req.Database == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	if len(req.QueryVector) == 0 {
		return nil, status.Error(codes.InvalidArgument, "query_vector is required")
	}
	values := wireParamsToValues(req.Filters)
	hits, err := s.capability.VectorSearch(ctx, req.Database, req.Label, req.Property, req.QueryVector, req.K, req.Ef, values)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.VectorSearchResponse{Hits: toWireHits(hits)}, nil
}

func (s *SearchService) TextSearch(ctx context.Context, req *wire.TextSearchRequest) (*wire.TextSearchResponse, error) {
	if err := s.requireCapability(); err != nil {
		return nil, err
	}
	if req.Database == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query text is required")
	}
	hits, err := s.capability.TextSearch(ctx, req.Database, req.Label, req.Property, req.Query, req.K)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.TextSearchResponse{Hits: toWireHits(hits)}, nil
}

func (s *SearchService) HybridSearch(ctx context.Context, req *wire.HybridSearchRequest) (*wire.HybridSearchResponse, error) {
	if err := s.requireCapability(); err != nil {
		return nil, err
	}
	if req.Database == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	if req.QueryText == "" {
		return nil, status.Error(codes.InvalidArgument, "query_text is required")
	}
	hits, err := s.capability.HybridSearch(ctx, req.Database, req.Label, req.TextProperty, req.VectorProperty, req.QueryText, req.QueryVector, req.K)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.HybridSearchResponse{Hits: toWireHits(hits)}, nil
}
