package lifecycle

import "testing"

func TestInitialState(t *testing.T) {
	if got := InitialState(KindConsent); got != StateDraft {
		t.Errorf("consent starts in %s, want draft", got)
	}
	if got := InitialState(KindReminder); got != StateActive {
		t.Errorf("reminder starts in %s, want active", got)
	}
	if got := InitialState(KindProtocol); got != StateActive {
		t.Errorf("protocol starts in %s, want active", got)
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		kind Kind
		from State
		cmd  Command
		to   State
		ok   bool
	}{
		{KindConsent, StateDraft, CommandSend, StateSent, true},
		{KindConsent, StateSent, CommandView, StateViewed, true},
		{KindConsent, StateViewed, CommandSign, StateSigned, true},
		{KindConsent, StateViewed, CommandRefuse, StateRefused, true},
		{KindConsent, StateDraft, CommandSign, "", false}, // cannot skip stages
		{KindConsent, StateSigned, CommandSend, "", false},
		{KindReminder, StateActive, CommandPause, StatePaused, true},
		{KindReminder, StatePaused, CommandResume, StateActive, true},
		{KindReminder, StatePaused, CommandComplete, StateCompleted, true},
		{KindReminder, StateActive, CommandResume, "", false},
		{KindProtocol, StateActive, CommandPause, StatePaused, true},
		{"visit", StateDraft, CommandSend, "", false},
	}
	for _, tc := range tests {
		to, ok := Target(tc.kind, tc.from, tc.cmd)
		if ok != tc.ok || to != tc.to {
			t.Errorf("Target(%s, %s, %s) = (%s, %v), want (%s, %v)",
				tc.kind, tc.from, tc.cmd, to, ok, tc.to, tc.ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []struct {
		kind Kind
		s    State
	}{
		{KindConsent, StateSigned},
		{KindConsent, StateRefused},
		{KindConsent, StateExpired},
		{KindConsent, StateCancelled},
		{KindReminder, StateCompleted},
		{KindReminder, StateCancelled},
		{KindReminder, StateExpired},
	}
	for _, tc := range terminal {
		if !IsTerminal(tc.kind, tc.s) {
			t.Errorf("expected %s/%s terminal", tc.kind, tc.s)
		}
	}
	live := []struct {
		kind Kind
		s    State
	}{
		{KindConsent, StateDraft},
		{KindConsent, StateViewed},
		{KindReminder, StateActive},
		{KindProtocol, StatePaused},
	}
	for _, tc := range live {
		if IsTerminal(tc.kind, tc.s) {
			t.Errorf("did not expect %s/%s terminal", tc.kind, tc.s)
		}
	}
}

func TestReachedBy(t *testing.T) {
	if !ReachedBy(KindConsent, StateSent, CommandSend) {
		t.Error("sent is reached by send")
	}
	if !ReachedBy(KindConsent, StateCancelled, CommandCancel) {
		t.Error("cancelled is reached by cancel")
	}
	if ReachedBy(KindConsent, StateViewed, CommandSend) {
		t.Error("viewed is not reached by send")
	}
	if !ReachedBy(KindReminder, StateActive, CommandResume) {
		t.Error("active is reached by resume")
	}
}

func TestReasonRequired(t *testing.T) {
	if !ReasonRequired(CommandCancel) || !ReasonRequired(CommandRefuse) {
		t.Error("cancel and refuse require a reason")
	}
	if ReasonRequired(CommandSend) || ReasonRequired(CommandExpire) {
		t.Error("send and expire do not require a reason")
	}
}
