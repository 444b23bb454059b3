package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/schedule"
)

// Kind identifies which lifecycle table governs an entity.
type Kind string

const (
	KindConsent  Kind = "consent"
	KindReminder Kind = "reminder"
	KindProtocol Kind = "protocol"
)

// State is a lifecycle stage. The closed per-kind sets live in the
// transition tables; states are plain strings so new kinds add tables, not
// engine branches.
type State string

const (
	// Consent states
	StateDraft   State = "draft"
	StateSent    State = "sent"
	StateViewed  State = "viewed"
	StateSigned  State = "signed"
	StateRefused State = "refused"
	StateExpired State = "expired"

	// Reminder / protocol states
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"

	// Shared terminal state
	StateCancelled State = "cancelled"
)

// Command is a caller-issued request to transition an entity.
type Command string

const (
	CommandCreate   Command = "create"
	CommandSend     Command = "send"
	CommandView     Command = "view"
	CommandSign     Command = "sign"
	CommandRefuse   Command = "refuse"
	CommandCancel   Command = "cancel"
	CommandExpire   Command = "expire"
	CommandPause    Command = "pause"
	CommandResume   Command = "resume"
	CommandComplete Command = "complete"
)

// Entity is one tracked lifecycle object: a consent document, a medication
// reminder, or a protocol enrollment. The State column is a projection of
// the audit log; it is only ever written through the engine. Entities are
// never deleted — a removed reminder is a cancelled one.
type Entity struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Kind      Kind      `db:"kind" json:"kind"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Title     string    `db:"title" json:"title"`
	State     State     `db:"state" json:"state"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateParams carries everything needed to open a new entity's lifecycle.
type CreateParams struct {
	Kind      Kind
	PatientID uuid.UUID
	Title     string
	Actor     string

	// ExpiresAt sets a one-shot expiry deadline (consent documents).
	ExpiresAt *time.Time

	// Rule is the recurrence for reminder doses or protocol steps. The
	// engine fills in the entity id before registration.
	Rule *schedule.Rule
}
