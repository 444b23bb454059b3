package auditlog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*Event, error)
}
