package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/auditlog"
	"github.com/clinicore/clinicore/internal/domain/schedule"
)

func newTestPoller(f *fixture) *Poller {
	p := NewPoller(f.engine, f.sched, time.Minute, zerolog.Nop())
	p.SetClock(func() time.Time { return f.now })
	return p
}

func TestPoller_ExpiresConsentDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deadline := testStart.Add(24 * time.Hour)
	entity := f.createConsent(t, &deadline)

	for _, cmd := range []Command{CommandSend, CommandView} {
		if _, err := f.engine.Apply(ctx, entity.ID, cmd, "reception", nil); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
	}

	poller := newTestPoller(f)
	if err := poller.RunOnce(ctx, deadline.Add(-time.Hour)); err != nil {
		t.Fatalf("run once: %v", err)
	}
	got, _ := f.engine.Get(ctx, entity.ID)
	if got.State != StateViewed {
		t.Fatalf("deadline not reached, expected viewed, got %s", got.State)
	}

	f.now = deadline.Add(time.Minute)
	if err := poller.RunOnce(ctx, f.now); err != nil {
		t.Fatalf("run once: %v", err)
	}
	got, _ = f.engine.Get(ctx, entity.ID)
	if got.State != StateExpired {
		t.Fatalf("expected expired, got %s", got.State)
	}

	events, _ := f.engine.History(ctx, entity.ID)
	last := events[len(events)-1]
	if last.EventType != string(CommandExpire) || last.Actor != auditlog.ActorSystem {
		t.Errorf("expected system expire event, got %s by %s", last.EventType, last.Actor)
	}

	// A second pass sees a terminal entity and appends nothing.
	if err := poller.RunOnce(ctx, f.now.Add(time.Hour)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := f.engine.History(ctx, entity.ID)
	if len(after) != len(events) {
		t.Errorf("second pass appended events: %d -> %d", len(events), len(after))
	}
}

func TestPoller_MissesOverdueDoses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.createReminder(t, schedule.Rule{
		Purpose:      schedule.PurposeDose,
		Freq:         schedule.FreqInterval,
		Start:        testStart,
		EveryMinutes: 12 * 60,
	})

	poller := newTestPoller(f)
	// First dose at T0+12h; 31 minutes later is past the 30m grace.
	f.now = testStart.Add(12*time.Hour + 31*time.Minute)
	if err := poller.RunOnce(ctx, f.now); err != nil {
		t.Fatalf("run once: %v", err)
	}

	due, _ := f.sched.Due(ctx, f.now)
	if len(due) != 0 {
		t.Errorf("missed dose still in due feed: %d", len(due))
	}
	got, _ := f.engine.Get(ctx, entity.ID)
	if got.State != StateActive {
		t.Errorf("a missed dose must not move the reminder, got %s", got.State)
	}

	countMissed := func() int {
		events, _ := f.engine.History(ctx, entity.ID)
		n := 0
		for _, e := range events {
			if e.EventType == "occurrence_missed" {
				n++
			}
		}
		return n
	}
	if countMissed() != 1 {
		t.Fatalf("expected one missed event, got %d", countMissed())
	}

	// Re-running over the same window records nothing twice.
	if err := poller.RunOnce(ctx, f.now); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if countMissed() != 1 {
		t.Errorf("second pass duplicated the miss: %d events", countMissed())
	}
}

func TestPoller_ProtocolStepsNotAutoMissed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity, err := f.engine.Create(ctx, CreateParams{
		Kind:      KindProtocol,
		PatientID: uuid.New(),
		Title:     "wound check",
		Actor:     "dr.lima",
		Rule: &schedule.Rule{
			Purpose:      schedule.PurposeStep,
			Freq:         schedule.FreqInterval,
			Start:        testStart,
			EveryMinutes: 24 * 60,
		},
	})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}

	poller := newTestPoller(f)
	// One hour past the day-1 step, well past the grace period.
	f.now = testStart.Add(25 * time.Hour)
	if err := poller.RunOnce(ctx, f.now); err != nil {
		t.Fatalf("run once: %v", err)
	}

	// The overdue step stays pending until a human resolves it.
	due, _ := f.sched.Due(ctx, f.now)
	if len(due) != 1 || due[0].Status != schedule.StatusPending {
		t.Fatalf("expected the step still pending, got %+v", due)
	}
	events, _ := f.engine.History(ctx, entity.ID)
	for _, e := range events {
		if e.EventType == "occurrence_missed" {
			t.Error("protocol step was auto-missed")
		}
	}
}

func TestPoller_ExpiresEndedReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := testStart.Add(24 * time.Hour)
	entity := f.createReminder(t, schedule.Rule{
		Purpose:      schedule.PurposeDose,
		Freq:         schedule.FreqInterval,
		Start:        testStart,
		EveryMinutes: 12 * 60,
		End:          &end,
	})

	poller := newTestPoller(f)
	f.now = end.Add(time.Minute)
	if err := poller.RunOnce(ctx, f.now); err != nil {
		t.Fatalf("run once: %v", err)
	}
	got, _ := f.engine.Get(ctx, entity.ID)
	if got.State != StateExpired {
		t.Fatalf("expected expired after end date, got %s", got.State)
	}
	if err := f.engine.VerifyReplay(ctx, entity.ID); err != nil {
		t.Errorf("replay mismatch: %v", err)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	p := NewPoller(f.engine, f.sched, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancellation")
	}
}
