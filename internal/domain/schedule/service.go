package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the scheduler.
var (
	ErrRuleNotFound    = errors.New("schedule rule not found")
	ErrAlreadyResolved = errors.New("occurrence already resolved")
)

// Service answers "what is due by time T" for every registered recurrence
// rule, and records write-once occurrence resolutions. All due-time
// comparisons happen in the configured location.
type Service struct {
	repo  Repository
	loc   *time.Location
	grace time.Duration
	now   func() time.Time
}

func NewService(repo Repository, loc *time.Location, grace time.Duration) *Service {
	return &Service{repo: repo, loc: loc, grace: grace, now: time.Now}
}

// SetClock overrides the resolution timestamp source for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Grace returns the configured grace period.
func (s *Service) Grace() time.Duration {
	return s.grace
}

// Register stores a rule for an entity. Occurrences are not materialized
// here; they are derived per query.
func (s *Service) Register(ctx context.Context, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	rule.Active = true
	return s.repo.SaveRule(ctx, &rule)
}

// Rule returns the rule registered for an entity.
func (s *Service) Rule(ctx context.Context, entityID uuid.UUID) (*Rule, error) {
	return s.repo.GetRule(ctx, entityID)
}

// Due returns every pending occurrence scheduled at or before asOf, across
// all active rules, ordered by scheduled time with ties broken by entity id
// and sequence for determinism.
func (s *Service) Due(ctx context.Context, asOf time.Time) ([]Occurrence, error) {
	return s.pendingUntil(ctx, asOf, func(scheduled time.Time) bool {
		return !scheduled.After(asOf)
	})
}

// Overdue returns the subset of due occurrences whose scheduled time plus
// the configured grace period lies strictly before asOf. An occurrence on
// that boundary is due but not yet overdue, for every grace value including
// zero. This feeds caregiver alerts and the automatic miss transition.
func (s *Service) Overdue(ctx context.Context, asOf time.Time) ([]Occurrence, error) {
	return s.pendingUntil(ctx, asOf, func(scheduled time.Time) bool {
		return scheduled.Add(s.grace).Before(asOf)
	})
}

func (s *Service) pendingUntil(ctx context.Context, asOf time.Time, include func(time.Time) bool) ([]Occurrence, error) {
	rules, err := s.repo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for _, rule := range rules {
		occs, err := s.entityOccurrences(ctx, rule, asOf)
		if err != nil {
			return nil, err
		}
		for _, occ := range occs {
			if occ.Status != StatusPending || !include(occ.ScheduledAt) {
				continue
			}
			out = append(out, occ)
		}
	}

	sortOccurrences(out)
	return out, nil
}

// Upcoming returns the pending occurrences of one entity scheduled in
// (asOf, asOf+horizon]. Paused or cancelled entities have no upcoming work.
func (s *Service) Upcoming(ctx context.Context, entityID uuid.UUID, asOf time.Time, horizon time.Duration) ([]Occurrence, error) {
	rule, err := s.repo.GetRule(ctx, entityID)
	if errors.Is(err, ErrRuleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return nil, nil
	}

	occs, err := s.entityOccurrences(ctx, rule, asOf.Add(horizon))
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for _, occ := range occs {
		if occ.Status == StatusPending && occ.ScheduledAt.After(asOf) {
			out = append(out, occ)
		}
	}
	sortOccurrences(out)
	return out, nil
}

// Resolve records the outcome of one occurrence. Resolution is write-once:
// a second call fails with ErrAlreadyResolved and the first outcome stands.
func (s *Service) Resolve(ctx context.Context, entityID, occurrenceID uuid.UUID, outcome Outcome, actor string, reason *string) error {
	switch outcome {
	case OutcomeConfirmed, OutcomeMissed, OutcomeSkipped:
	default:
		return fmt.Errorf("invalid outcome: %s", outcome)
	}
	return s.repo.SaveResolution(ctx, &Resolution{
		OccurrenceID: occurrenceID,
		EntityID:     entityID,
		Outcome:      outcome,
		Actor:        actor,
		Reason:       reason,
		ResolvedAt:   s.now(),
	})
}

// Cancel deactivates the entity's rule so no further occurrences are
// generated; not-yet-resolved future occurrences are thereby skipped.
// Entities without a rule (a consent with no expiry date) are a no-op.
func (s *Service) Cancel(ctx context.Context, entityID uuid.UUID) error {
	err := s.repo.SetRuleActive(ctx, entityID, false, nil)
	if errors.Is(err, ErrRuleNotFound) {
		return nil
	}
	return err
}

// Resume reactivates a paused entity's rule. Occurrences scheduled before
// the resume instant stay skipped; there is no resurrection.
func (s *Service) Resume(ctx context.Context, entityID uuid.UUID, notBefore time.Time) error {
	err := s.repo.SetRuleActive(ctx, entityID, true, &notBefore)
	if errors.Is(err, ErrRuleNotFound) {
		return nil
	}
	return err
}

// ExpiredEntities returns the ids of entities whose rule's end time has
// passed as of the given instant. The poller turns these into expire
// commands.
func (s *Service) ExpiredEntities(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	rules, err := s.repo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, rule := range rules {
		if rule.End != nil && rule.End.Before(asOf) {
			out = append(out, rule.EntityID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// entityOccurrences expands a rule until the given instant and overlays the
// recorded resolutions onto the derived pending statuses.
func (s *Service) entityOccurrences(ctx context.Context, rule *Rule, until time.Time) ([]Occurrence, error) {
	occs := rule.OccurrencesUntil(until, s.loc)
	if len(occs) == 0 {
		return nil, nil
	}

	resolutions, err := s.repo.ListResolutionsByEntity(ctx, rule.EntityID)
	if err != nil {
		return nil, err
	}
	byOcc := make(map[uuid.UUID]Outcome, len(resolutions))
	for _, res := range resolutions {
		byOcc[res.OccurrenceID] = res.Outcome
	}

	for i := range occs {
		if outcome, ok := byOcc[occs[i].ID]; ok {
			occs[i].Status = OccurrenceStatus(outcome)
		}
	}
	return occs, nil
}

func sortOccurrences(occs []Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		if !occs[i].ScheduledAt.Equal(occs[j].ScheduledAt) {
			return occs[i].ScheduledAt.Before(occs[j].ScheduledAt)
		}
		if occs[i].EntityID != occs[j].EntityID {
			return occs[i].EntityID.String() < occs[j].EntityID.String()
		}
		return occs[i].Seq < occs[j].Seq
	})
}
