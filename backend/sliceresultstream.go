package backend

import "context"

// SliceResultStream is a ResultStream backed by a pre-built slice of frames,
// useful for backends (mock, SQL-backed) that assemble a complete frame
// sequence before returning from Execute rather than streaming lazily.
type SliceResultStream struct {
	frames []ResultFrame
	pos    int
}

// NewSliceResultStream wraps frames as a ResultStream. frames must already
// satisfy the Header-first, Summary-last ordering contract.
func NewSliceResultStream(frames []ResultFrame) *SliceResultStream {
	return &SliceResultStream{frames: frames}
}

// Next implements ResultStream.
func (s *SliceResultStream) Next(ctx context.Context) (*ResultFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return &f, nil
}
