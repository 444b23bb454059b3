package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/auditlog"
	"github.com/clinicore/clinicore/internal/domain/schedule"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/metrics"
)

// Engine drives entity lifecycles. Every state change goes through Apply:
// legality check against the kind's transition table, audit event append,
// projection update and scheduler side effect, all inside one unit of work.
// Commands for the same entity are serialized; different entities proceed
// concurrently.
type Engine struct {
	entities Repository
	audit    *auditlog.Service
	sched    *schedule.Service
	runner   db.Runner
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewEngine(entities Repository, audit *auditlog.Service, sched *schedule.Service,
	runner db.Runner, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		entities: entities,
		audit:    audit,
		sched:    sched,
		runner:   runner,
		metrics:  m,
		log:      log.With().Str("component", "lifecycle").Logger(),
		now:      time.Now,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetClock overrides the engine's timestamp source for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// entityLock returns the mutex serializing commands for one entity. Locks
// are never reclaimed; the map is bounded by the number of entities touched
// since startup.
func (e *Engine) entityLock(id uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Create opens a new entity in its kind's initial state, writes the creation
// audit event, and registers the recurrence rule or expiry deadline with the
// scheduler. Everything happens in one unit of work.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*Entity, error) {
	if !ValidKind(p.Kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, p.Kind)
	}
	if p.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidArgument)
	}
	if p.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}

	now := e.now()
	entity := &Entity{
		ID:        uuid.New(),
		Kind:      p.Kind,
		PatientID: p.PatientID,
		Title:     p.Title,
		State:     InitialState(p.Kind),
		CreatedAt: now,
		UpdatedAt: now,
	}

	rule := p.Rule
	if rule == nil && p.ExpiresAt != nil {
		rule = &schedule.Rule{
			Purpose: schedule.PurposeExpiry,
			Freq:    schedule.FreqOnce,
			Start:   *p.ExpiresAt,
		}
	}
	if rule != nil {
		rule.EntityID = entity.ID
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	err := e.runner.WithinTx(ctx, func(ctx context.Context) error {
		if err := e.entities.Create(ctx, entity); err != nil {
			return err
		}
		if err := e.appendEvent(ctx, entity, "created", "", entity.State, p.Actor, nil, nil); err != nil {
			return err
		}
		if rule != nil {
			return e.sched.Register(ctx, *rule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.CommandsApplied.WithLabelValues(string(p.Kind), string(CommandCreate)).Inc()
	e.log.Info().
		Str("entity_id", entity.ID.String()).
		Str("kind", string(entity.Kind)).
		Str("actor", p.Actor).
		Msg("entity created")
	return entity, nil
}

// Apply submits a command against an entity. Checks run in a fixed order:
// idempotent re-submission first, then terminal-state immutability, then the
// reason requirement, then table legality. A re-submitted command whose
// target state the entity already occupies succeeds without appending a new
// event.
func (e *Engine) Apply(ctx context.Context, entityID uuid.UUID, cmd Command, actor string, reason *string) (*Entity, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}

	lock := e.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	entity, err := e.entities.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if ReachedBy(entity.Kind, entity.State, cmd) {
		e.log.Debug().
			Str("entity_id", entityID.String()).
			Str("command", string(cmd)).
			Msg("idempotent re-submission, no-op")
		return entity, nil
	}
	if IsTerminal(entity.Kind, entity.State) {
		e.metrics.CommandsRejected.WithLabelValues("entity_terminal").Inc()
		return nil, fmt.Errorf("%w: %s is %s", ErrEntityTerminal, entityID, entity.State)
	}
	if ReasonRequired(cmd) && (reason == nil || *reason == "") {
		e.metrics.CommandsRejected.WithLabelValues("reason_required").Inc()
		return nil, fmt.Errorf("%w: command %s", ErrReasonRequired, cmd)
	}
	target, ok := Target(entity.Kind, entity.State, cmd)
	if !ok {
		e.metrics.CommandsRejected.WithLabelValues("illegal_transition").Inc()
		return nil, fmt.Errorf("%w: %s cannot %s from %s", ErrIllegalTransition, entity.Kind, cmd, entity.State)
	}

	now := e.now()
	from := entity.State
	err = e.runner.WithinTx(ctx, func(ctx context.Context) error {
		if err := e.appendEvent(ctx, entity, string(cmd), from, target, actor, reason, nil); err != nil {
			return err
		}
		if err := e.entities.UpdateState(ctx, entityID, target, now); err != nil {
			return err
		}
		switch {
		case IsTerminal(entity.Kind, target), cmd == CommandPause:
			return e.sched.Cancel(ctx, entityID)
		case cmd == CommandResume:
			return e.sched.Resume(ctx, entityID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entity.State = target
	entity.UpdatedAt = now
	e.metrics.CommandsApplied.WithLabelValues(string(entity.Kind), string(cmd)).Inc()
	e.log.Info().
		Str("entity_id", entityID.String()).
		Str("command", string(cmd)).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", actor).
		Msg("command applied")
	return entity, nil
}

// ResolveOccurrence records the outcome of one scheduled occurrence and the
// matching audit event. A missed dose must carry a reason. Resolution is
// write-once; the scheduler rejects the second attempt.
func (e *Engine) ResolveOccurrence(ctx context.Context, entityID, occurrenceID uuid.UUID,
	outcome schedule.Outcome, actor string, reason *string) error {
	if actor == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	switch outcome {
	case schedule.OutcomeConfirmed, schedule.OutcomeMissed, schedule.OutcomeSkipped:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidArgument, outcome)
	}
	if outcome == schedule.OutcomeMissed && (reason == nil || *reason == "") {
		return fmt.Errorf("%w: outcome %s", ErrReasonRequired, outcome)
	}

	lock := e.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	entity, err := e.entities.Get(ctx, entityID)
	if err != nil {
		return err
	}

	err = e.runner.WithinTx(ctx, func(ctx context.Context) error {
		if err := e.sched.Resolve(ctx, entityID, occurrenceID, outcome, actor, reason); err != nil {
			return err
		}
		return e.appendEvent(ctx, entity, "occurrence_"+string(outcome),
			entity.State, entity.State, actor, reason, &occurrenceID)
	})
	if err != nil {
		return err
	}

	e.metrics.OccurrencesResolved.WithLabelValues(string(outcome)).Inc()
	e.log.Info().
		Str("entity_id", entityID.String()).
		Str("occurrence_id", occurrenceID.String()).
		Str("outcome", string(outcome)).
		Str("actor", actor).
		Msg("occurrence resolved")
	return nil
}

func (e *Engine) appendEvent(ctx context.Context, entity *Entity, eventType string,
	from, to State, actor string, reason *string, occurrenceID *uuid.UUID) error {
	event := &auditlog.Event{
		EntityID:     entity.ID,
		EntityKind:   string(entity.Kind),
		EventType:    eventType,
		FromState:    string(from),
		ToState:      string(to),
		Actor:        actor,
		Reason:       reason,
		OccurrenceID: occurrenceID,
		Recorded:     e.now(),
	}
	if err := e.audit.Append(ctx, event); err != nil {
		e.metrics.AuditAppendFailures.Inc()
		e.log.Error().Err(err).
			Str("entity_id", entity.ID.String()).
			Str("event_type", eventType).
			Msg("audit append failed, transition aborted")
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Get returns the current entity projection.
func (e *Engine) Get(ctx context.Context, entityID uuid.UUID) (*Entity, error) {
	return e.entities.Get(ctx, entityID)
}

// History returns the full audit timeline for an entity.
func (e *Engine) History(ctx context.Context, entityID uuid.UUID) ([]*auditlog.Event, error) {
	if _, err := e.entities.Get(ctx, entityID); err != nil {
		return nil, err
	}
	return e.audit.History(ctx, entityID)
}

// Upcoming returns the entity's pending occurrences within the horizon.
func (e *Engine) Upcoming(ctx context.Context, entityID uuid.UUID, horizon time.Duration) ([]schedule.Occurrence, error) {
	if _, err := e.entities.Get(ctx, entityID); err != nil {
		return nil, err
	}
	return e.sched.Upcoming(ctx, entityID, e.now(), horizon)
}

// List returns entities matching the filter plus the unpaged total.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*Entity, int, error) {
	return e.entities.List(ctx, filter)
}

// VerifyReplay recomputes an entity's state from its audit history and
// compares it against the stored projection. A mismatch means the projection
// drifted from the log.
func (e *Engine) VerifyReplay(ctx context.Context, entityID uuid.UUID) error {
	entity, err := e.entities.Get(ctx, entityID)
	if err != nil {
		return err
	}
	events, err := e.audit.History(ctx, entityID)
	if err != nil {
		return err
	}
	replayed, err := Replay(entity.Kind, events)
	if err != nil {
		return err
	}
	if replayed != entity.State {
		return fmt.Errorf("replay mismatch for %s: log says %s, projection says %s",
			entityID, replayed, entity.State)
	}
	return nil
}

// IsConflict reports whether err maps to a transition conflict (HTTP 409).
func IsConflict(err error) bool {
	return errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrEntityTerminal)
}
