package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/auditlog"
	"github.com/clinicore/clinicore/internal/domain/schedule"
)

// Poller is the background loop that turns scheduler output into engine
// commands: due expiry deadlines become expire transitions, overdue doses
// become missed resolutions. It is safe to run more than one poller against
// the same store — resolution is write-once and expire re-application is
// idempotent, so the losers of any race see benign conflicts.
type Poller struct {
	engine   *Engine
	sched    *schedule.Service
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewPoller(engine *Engine, sched *schedule.Service, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		engine:   engine,
		sched:    sched,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the poller's timestamp source for tests.
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// Run ticks until the context is cancelled. Each tick is one RunOnce pass;
// a failing pass is logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("poller started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx, p.now()); err != nil {
				p.log.Error().Err(err).Msg("poll pass failed")
			}
		}
	}
}

// RunOnce executes a single poll pass as of the given instant. Exported so
// tests can drive the poller without a ticker.
func (p *Poller) RunOnce(ctx context.Context, asOf time.Time) error {
	if err := p.expireDeadlines(ctx, asOf); err != nil {
		return err
	}
	if err := p.missOverdueDoses(ctx, asOf); err != nil {
		return err
	}
	return p.expireEndedRules(ctx, asOf)
}

// expireDeadlines fires the expire command for every due one-shot expiry
// occurrence (consent deadlines).
func (p *Poller) expireDeadlines(ctx context.Context, asOf time.Time) error {
	due, err := p.sched.Due(ctx, asOf)
	if err != nil {
		return err
	}
	for _, occ := range due {
		if occ.Purpose != schedule.PurposeExpiry {
			continue
		}
		p.expire(ctx, occ.EntityID)
	}
	return nil
}

// missOverdueDoses records a system missed resolution for every reminder
// dose past its grace period. Protocol steps are never auto-missed; skipping
// a step is a human decision.
func (p *Poller) missOverdueDoses(ctx context.Context, asOf time.Time) error {
	overdue, err := p.sched.Overdue(ctx, asOf)
	if err != nil {
		return err
	}
	reason := "not confirmed within grace period"
	for _, occ := range overdue {
		if occ.Purpose != schedule.PurposeDose {
			continue
		}
		err := p.engine.ResolveOccurrence(ctx, occ.EntityID, occ.ID,
			schedule.OutcomeMissed, auditlog.ActorSystem, &reason)
		switch {
		case err == nil:
			p.log.Info().
				Str("entity_id", occ.EntityID.String()).
				Str("occurrence_id", occ.ID.String()).
				Time("scheduled_at", occ.ScheduledAt).
				Msg("dose marked missed")
		case errors.Is(err, schedule.ErrAlreadyResolved), errors.Is(err, ErrNotFound):
			// another poller got there first, or the entity is gone
		default:
			p.log.Error().Err(err).
				Str("occurrence_id", occ.ID.String()).
				Msg("failed to mark dose missed")
		}
	}
	return nil
}

// expireEndedRules fires the expire command for entities whose recurrence
// window has closed (reminder end dates).
func (p *Poller) expireEndedRules(ctx context.Context, asOf time.Time) error {
	expired, err := p.sched.ExpiredEntities(ctx, asOf)
	if err != nil {
		return err
	}
	for _, entityID := range expired {
		p.expire(ctx, entityID)
	}
	return nil
}

func (p *Poller) expire(ctx context.Context, entityID uuid.UUID) {
	_, err := p.engine.Apply(ctx, entityID, CommandExpire, auditlog.ActorSystem, nil)
	switch {
	case err == nil:
	case IsConflict(err), errors.Is(err, ErrNotFound):
		// already terminal or concurrently removed
	default:
		p.log.Error().Err(err).
			Str("entity_id", entityID.String()).
			Msg("failed to expire entity")
	}
}
