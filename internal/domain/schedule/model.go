package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal resolution of one occurrence.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeMissed    Outcome = "missed"
	OutcomeSkipped   Outcome = "skipped"
)

// OccurrenceStatus is the sub-state of a single occurrence.
type OccurrenceStatus string

const (
	StatusPending   OccurrenceStatus = "pending"
	StatusConfirmed OccurrenceStatus = "confirmed"
	StatusMissed    OccurrenceStatus = "missed"
	StatusSkipped   OccurrenceStatus = "skipped"
)

// RulePurpose says what kind of work an occurrence represents: a medication
// dose to confirm, a protocol step to perform, or a one-shot expiry deadline.
type RulePurpose string

const (
	PurposeDose   RulePurpose = "dose"
	PurposeStep   RulePurpose = "step"
	PurposeExpiry RulePurpose = "expiry"
)

// Rule frequency types.
const (
	FreqOnce     = "once"     // single occurrence at Start
	FreqInterval = "interval" // every EveryMinutes, first one interval after Start
	FreqDaily    = "daily"    // at fixed clock times each day
)

// Rule is the recurrence rule owned by one entity. Occurrences are derived
// from the rule on demand, never materialized eagerly: a rule may be
// open-ended, so only bounded windows are ever expanded.
type Rule struct {
	EntityID     uuid.UUID  `db:"entity_id" json:"entity_id"`
	Purpose      RulePurpose `db:"purpose" json:"purpose"`
	Freq         string     `db:"freq" json:"freq"`
	Start        time.Time  `db:"start_at" json:"start_at"`
	End          *time.Time `db:"end_at" json:"end_at,omitempty"`
	Count        *int       `db:"occurrence_count" json:"occurrence_count,omitempty"`
	EveryMinutes int        `db:"every_minutes" json:"every_minutes,omitempty"`
	Times        []string   `db:"times" json:"times,omitempty"` // "HH:MM" clock times for FreqDaily
	Active       bool       `db:"active" json:"active"`
	NotBefore    *time.Time `db:"not_before" json:"not_before,omitempty"`
}

// Occurrence is one scheduled instant derived from a rule. Its identity is a
// deterministic function of (entity, sequence), so overlapping window
// queries always agree on IDs.
type Occurrence struct {
	ID          uuid.UUID        `json:"id"`
	EntityID    uuid.UUID        `json:"entity_id"`
	Purpose     RulePurpose      `json:"purpose"`
	Seq         int              `json:"seq"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Status      OccurrenceStatus `json:"status"`
}

// Resolution is the write-once outcome record for one occurrence.
type Resolution struct {
	OccurrenceID uuid.UUID `db:"occurrence_id" json:"occurrence_id"`
	EntityID     uuid.UUID `db:"entity_id" json:"entity_id"`
	Outcome      Outcome   `db:"outcome" json:"outcome"`
	Actor        string    `db:"actor" json:"actor"`
	Reason       *string   `db:"reason" json:"reason,omitempty"`
	ResolvedAt   time.Time `db:"resolved_at" json:"resolved_at"`
}
