package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows entity listings. Zero values mean "any".
type ListFilter struct {
	Kind      Kind
	State     State
	PatientID uuid.UUID
	Limit     int
	Offset    int
}

// Repository persists the entity projection. State writes happen only inside
// the engine's unit of work, after the audit event is appended.
type Repository interface {
	Create(ctx context.Context, e *Entity) error
	Get(ctx context.Context, id uuid.UUID) (*Entity, error)
	UpdateState(ctx context.Context, id uuid.UUID, state State, updatedAt time.Time) error
	List(ctx context.Context, filter ListFilter) ([]*Entity, int, error)
}
