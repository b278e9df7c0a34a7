package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/grafeodb/gwp/backend"
)

// runReaper sweeps the session registry every idleTimeout/2, cascading an
// expiry to the transaction registry and the backend, until ctx is
// cancelled.
func (s *Server) runReaper(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *Server) reapOnce() {
	expired := s.sessions.ReapIdle(s.idleTimeout)
	for _, sessionID := range expired {
		for _, txID := range s.transactions.RemoveForSession(sessionID) {
			if err := s.backend.Rollback(context.Background(), backend.SessionHandle(sessionID), backend.TransactionHandle(txID)); err != nil {
				s.logger.Warn("reaper: rollback failed",
					slog.String("session_id", sessionID),
					slog.String("transaction_id", txID),
					slog.Any("error", err))
			}
		}
		if err := s.backend.CloseSession(context.Background(), backend.SessionHandle(sessionID)); err != nil {
			s.logger.Warn("reaper: close session failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err))
			continue
		}
		s.logger.Debug("reaper: session reaped", slog.String("session_id", sessionID))
	}
}
