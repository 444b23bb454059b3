package lifecycle

// transition tables: one map per kind, keyed by current state, listing the
// commands legal from that state and the state each one lands in. The engine
// never switches on kind for transition logic; adding a kind means adding a
// table here.

type transitions map[State]map[Command]State

var consentTransitions = transitions{
	StateDraft: {
		CommandSend:   StateSent,
		CommandCancel: StateCancelled,
		CommandExpire: StateExpired,
	},
	StateSent: {
		CommandView:   StateViewed,
		CommandCancel: StateCancelled,
		CommandExpire: StateExpired,
	},
	StateViewed: {
		CommandSign:   StateSigned,
		CommandRefuse: StateRefused,
		CommandCancel: StateCancelled,
		CommandExpire: StateExpired,
	},
}

var reminderTransitions = transitions{
	StateActive: {
		CommandPause:    StatePaused,
		CommandComplete: StateCompleted,
		CommandCancel:   StateCancelled,
		CommandExpire:   StateExpired,
	},
	StatePaused: {
		CommandResume:   StateActive,
		CommandComplete: StateCompleted,
		CommandCancel:   StateCancelled,
		CommandExpire:   StateExpired,
	},
}

var tableByKind = map[Kind]transitions{
	KindConsent:  consentTransitions,
	KindReminder: reminderTransitions,
	KindProtocol: reminderTransitions, // same stage machine, different occurrences
}

// reasonRequired lists the commands that must carry a human-supplied reason.
var reasonRequired = map[Command]bool{
	CommandCancel: true,
	CommandRefuse: true,
}

// initialStateByKind is the state a freshly created entity starts in.
var initialStateByKind = map[Kind]State{
	KindConsent:  StateDraft,
	KindReminder: StateActive,
	KindProtocol: StateActive,
}

// ValidKind reports whether k names a known lifecycle kind.
func ValidKind(k Kind) bool {
	_, ok := tableByKind[k]
	return ok
}

// InitialState returns the entry state for a kind.
func InitialState(k Kind) State {
	return initialStateByKind[k]
}

// Target resolves the state a command leads to from the given state, for the
// given kind. ok is false when the transition is not in the table.
func Target(kind Kind, from State, cmd Command) (State, bool) {
	table, ok := tableByKind[kind]
	if !ok {
		return "", false
	}
	to, ok := table[from][cmd]
	return to, ok
}

// IsTerminal reports whether a state has no outgoing transitions for the
// kind. Terminal states accept no further commands, ever.
func IsTerminal(kind Kind, s State) bool {
	table, ok := tableByKind[kind]
	if !ok {
		return true
	}
	return len(table[s]) == 0
}

// ReachedBy reports whether state s is the target the command would land in
// from some predecessor of s — i.e. whether an entity already in s looks like
// cmd was just applied. This is what makes command resubmission idempotent.
func ReachedBy(kind Kind, s State, cmd Command) bool {
	table, ok := tableByKind[kind]
	if !ok {
		return false
	}
	for _, cmds := range table {
		if to, ok := cmds[cmd]; ok && to == s {
			return true
		}
	}
	return false
}

// ReasonRequired reports whether the command must carry a reason.
func ReasonRequired(cmd Command) bool {
	return reasonRequired[cmd]
}
