package lifecycle

import (
	"fmt"
	"strings"

	"github.com/clinicore/clinicore/internal/domain/auditlog"
)

// Replay folds an entity's audit events through the transition tables and
// returns the resulting state. Given the same event sequence it always
// produces the same answer; it never consults the stored projection, which
// makes it the arbiter when the two disagree.
func Replay(kind Kind, events []*auditlog.Event) (State, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("empty event sequence")
	}

	var state State
	for i, event := range events {
		switch {
		case event.EventType == "created":
			if i != 0 {
				return "", fmt.Errorf("event %d: creation mid-sequence", i)
			}
			state = State(event.ToState)
		case strings.HasPrefix(event.EventType, "occurrence_"):
			// resolutions do not move the stage machine
		default:
			target, ok := Target(kind, state, Command(event.EventType))
			if !ok {
				return "", fmt.Errorf("event %d: %w: %s from %s", i, ErrIllegalTransition, event.EventType, state)
			}
			state = target
		}
	}
	return state, nil
}
