package lifecycle

import "errors"

// Sentinel errors for the engine. Callers branch with errors.Is; the HTTP
// layer maps each to a status code.
var (
	// ErrNotFound: the entity id is unknown.
	ErrNotFound = errors.New("entity not found")

	// ErrIllegalTransition: the command is not legal from the entity's
	// current state.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrEntityTerminal: the entity is in a terminal state and accepts no
	// further commands.
	ErrEntityTerminal = errors.New("entity in terminal state")

	// ErrReasonRequired: the command needs a reason and none was given.
	ErrReasonRequired = errors.New("reason required")

	// ErrStorageUnavailable: the audit log could not be appended to, so the
	// transition was not applied.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidArgument: a request parameter failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
