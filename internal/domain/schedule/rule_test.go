package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func intervalRule(entityID uuid.UUID, start time.Time, everyMinutes int) Rule {
	return Rule{
		EntityID:     entityID,
		Purpose:      PurposeDose,
		Freq:         FreqInterval,
		Start:        start,
		EveryMinutes: everyMinutes,
		Active:       true,
	}
}

func TestValidate(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	entityID := uuid.New()

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"interval ok", intervalRule(entityID, start, 480), false},
		{"once ok", Rule{EntityID: entityID, Purpose: PurposeExpiry, Freq: FreqOnce, Start: start}, false},
		{"daily ok", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqDaily, Start: start, Times: []string{"08:00", "20:00"}}, false},
		{"missing entity", intervalRule(uuid.Nil, start, 60), true},
		{"missing start", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqOnce}, true},
		{"zero interval", intervalRule(entityID, start, 0), true},
		{"daily without times", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqDaily, Start: start}, true},
		{"bad clock time", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqDaily, Start: start, Times: []string{"25:00"}}, true},
		{"bad freq", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: "weekly", Start: start}, true},
		{"bad purpose", Rule{EntityID: entityID, Purpose: "snack", Freq: FreqOnce, Start: start}, true},
		{"end before start", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqOnce, Start: start, End: timePtr(start.Add(-time.Hour))}, true},
		{"zero count", Rule{EntityID: entityID, Purpose: PurposeDose, Freq: FreqOnce, Start: start, Count: intPtr(0)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOccurrencesUntil_Interval(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := intervalRule(uuid.New(), start, 12*60)
	rule.Count = intPtr(2)

	// The first dose lands one interval after the course start; nothing is
	// scheduled at start itself.
	if occs := rule.OccurrencesUntil(start.Add(12*time.Hour-time.Minute), time.UTC); len(occs) != 0 {
		t.Fatalf("expected no occurrences before the first interval, got %d", len(occs))
	}

	occs := rule.OccurrencesUntil(start.Add(48*time.Hour), time.UTC)
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences (count cap), got %d", len(occs))
	}
	if !occs[0].ScheduledAt.Equal(start.Add(12 * time.Hour)) {
		t.Errorf("first occurrence at %v, want %v", occs[0].ScheduledAt, start.Add(12*time.Hour))
	}
	if !occs[1].ScheduledAt.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("second occurrence at %v, want %v", occs[1].ScheduledAt, start.Add(24*time.Hour))
	}
}

func TestOccurrencesUntil_WindowCutsOff(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := intervalRule(uuid.New(), start, 8*60)

	occs := rule.OccurrencesUntil(start.Add(18*time.Hour), time.UTC)
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences within 18h, got %d", len(occs))
	}
}

func TestOccurrencesUntil_EndBound(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := intervalRule(uuid.New(), start, 60)
	rule.End = timePtr(start.Add(2 * time.Hour))

	occs := rule.OccurrencesUntil(start.Add(24*time.Hour), time.UTC)
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences up to end, got %d", len(occs))
	}
}

func TestOccurrencesUntil_Once(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := Rule{EntityID: uuid.New(), Purpose: PurposeExpiry, Freq: FreqOnce, Start: start, Active: true}

	if occs := rule.OccurrencesUntil(start.Add(-time.Minute), time.UTC); len(occs) != 0 {
		t.Errorf("expected no occurrences before start, got %d", len(occs))
	}
	occs := rule.OccurrencesUntil(start, time.UTC)
	if len(occs) != 1 {
		t.Fatalf("expected the single occurrence, got %d", len(occs))
	}
	if occs[0].Seq != 0 {
		t.Errorf("expected seq 0, got %d", occs[0].Seq)
	}
}

func TestOccurrencesUntil_DailyClockTimes(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)
	rule := Rule{
		EntityID: uuid.New(),
		Purpose:  PurposeDose,
		Freq:     FreqDaily,
		Start:    start,
		Times:    []string{"20:00", "08:00"}, // unsorted on purpose
		Active:   true,
	}

	occs := rule.OccurrencesUntil(start.AddDate(0, 0, 2), loc)
	if len(occs) != 4 {
		t.Fatalf("expected 4 occurrences over 2 days, got %d", len(occs))
	}
	first := occs[0].ScheduledAt.In(loc)
	if first.Hour() != 8 || first.Minute() != 0 {
		t.Errorf("expected first dose at 08:00 local, got %02d:%02d", first.Hour(), first.Minute())
	}
	second := occs[1].ScheduledAt.In(loc)
	if second.Hour() != 20 {
		t.Errorf("expected second dose at 20:00 local, got %02d:%02d", second.Hour(), second.Minute())
	}
}

func TestOccurrencesUntil_DeterministicIDs(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := intervalRule(uuid.New(), start, 60)

	short := rule.OccurrencesUntil(start.Add(150*time.Minute), time.UTC)
	long := rule.OccurrencesUntil(start.Add(5*time.Hour), time.UTC)
	if len(short) < 2 || len(long) < len(short) {
		t.Fatalf("unexpected expansion sizes: %d, %d", len(short), len(long))
	}
	for i := range short {
		if short[i].ID != long[i].ID {
			t.Errorf("occurrence %d: ID differs between windows (%s vs %s)", i, short[i].ID, long[i].ID)
		}
	}
}

func TestOccurrencesUntil_NotBeforeSkips(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := intervalRule(uuid.New(), start, 60)
	rule.NotBefore = timePtr(start.Add(2 * time.Hour))

	occs := rule.OccurrencesUntil(start.Add(3*time.Hour), time.UTC)
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	for _, occ := range occs[:1] {
		if occ.Status != StatusSkipped {
			t.Errorf("occurrence at %v: expected skipped, got %s", occ.ScheduledAt, occ.Status)
		}
	}
	for _, occ := range occs[1:] {
		if occ.Status != StatusPending {
			t.Errorf("occurrence at %v: expected pending, got %s", occ.ScheduledAt, occ.Status)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(i int) *int              { return &i }
