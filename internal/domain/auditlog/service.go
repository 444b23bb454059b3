package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the append-only audit trail. Events are never edited or
// removed; corrections are modeled as new compensating events.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the event timestamp source. Tests use it for
// deterministic timelines.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Append(ctx context.Context, e *Event) error {
	if e.Recorded.IsZero() {
		e.Recorded = s.now()
	}
	return s.repo.Append(ctx, e)
}

// History returns the full event sequence for an entity in append order.
// The slice is a fresh copy on every call, so it can be re-iterated freely.
func (s *Service) History(ctx context.Context, entityID uuid.UUID) ([]*Event, error) {
	return s.repo.ListByEntity(ctx, entityID)
}
