package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	SaveRule(ctx context.Context, r *Rule) error
	GetRule(ctx context.Context, entityID uuid.UUID) (*Rule, error)
	ListActiveRules(ctx context.Context) ([]*Rule, error)
	SetRuleActive(ctx context.Context, entityID uuid.UUID, active bool, notBefore *time.Time) error

	// SaveResolution must fail with ErrAlreadyResolved when a resolution for
	// the occurrence already exists; resolution is write-once.
	SaveResolution(ctx context.Context, res *Resolution) error
	GetResolution(ctx context.Context, occurrenceID uuid.UUID) (*Resolution, error)
	ListResolutionsByEntity(ctx context.Context, entityID uuid.UUID) ([]*Resolution, error)
}
