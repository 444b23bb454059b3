package auditlog

import (
	"time"

	"github.com/google/uuid"
)

// Event is one immutable entry in an entity's audit trail: an applied
// lifecycle transition or an occurrence resolution. The ordered event
// sequence is the source of truth for entity state; cached state columns are
// derived projections.
type Event struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Seq          int64      `db:"seq" json:"seq"`
	EntityID     uuid.UUID  `db:"entity_id" json:"entity_id"`
	EntityKind   string     `db:"entity_kind" json:"entity_kind"`
	EventType    string     `db:"event_type" json:"event_type"`
	FromState    string     `db:"from_state" json:"from_state,omitempty"`
	ToState      string     `db:"to_state" json:"to_state,omitempty"`
	Actor        string     `db:"actor" json:"actor"`
	Reason       *string    `db:"reason" json:"reason,omitempty"`
	OccurrenceID *uuid.UUID `db:"occurrence_id" json:"occurrence_id,omitempty"`
	Recorded     time.Time  `db:"recorded" json:"recorded"`
}

// ActorSystem identifies transitions raised by the scheduler rather than a
// named user (expiry, automatic misses).
const ActorSystem = "system"
