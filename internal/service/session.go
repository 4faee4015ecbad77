package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/query"
	"github.com/willrp/willstores-ws/internal/result"
)

// SessionService implements the read operations over catalog sessions.
type SessionService struct {
	backend engine.Backend
	logger  *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(backend engine.Backend, logger *slog.Logger) *SessionService {
	return &SessionService{
		backend: backend,
		logger:  logger,
	}
}

// ListSessions returns every session matching the optional gender and name,
// each with the number of products filed under it. Product totals come from
// a single grouped aggregation; a session without products totals zero.
func (s *SessionService) ListSessions(ctx context.Context, gender, name *string) ([]domain.SessionTotal, error) {
	resp, err := s.backend.Search(ctx, query.Sessions(gender, name))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions, err := result.Sessions(resp)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	totalsResp, err := s.backend.Search(ctx, query.SessionTotals(ids))
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}
	counts := result.BucketCounts(totalsResp, query.AggSessions)

	out := make([]domain.SessionTotal, len(sessions))
	for i, sess := range sessions {
		out[i] = domain.SessionTotal{Session: sess, Total: counts[sess.ID]}
	}

	s.logger.DebugContext(ctx, "sessions listed",
		slog.Int("count", len(out)),
	)
	return out, nil
}

// GetSessionByID returns the session with the given id.
func (s *SessionService) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	resp, err := s.backend.Search(ctx, query.SessionByID(id))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return result.Session(resp, id)
}
