package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Hard cap on occurrences expanded per rule and window. A sane rule never
// gets close; this bounds pathological inputs like "every minute for a year".
const maxExpansion = 10000

// Validate checks that a rule is expandable.
func (r Rule) Validate() error {
	if r.EntityID == uuid.Nil {
		return fmt.Errorf("entity_id is required")
	}
	if r.Start.IsZero() {
		return fmt.Errorf("start_at is required")
	}
	if r.End != nil && r.End.Before(r.Start) {
		return fmt.Errorf("end_at precedes start_at")
	}
	if r.Count != nil && *r.Count <= 0 {
		return fmt.Errorf("occurrence_count must be positive")
	}
	switch r.Purpose {
	case PurposeDose, PurposeStep, PurposeExpiry:
	default:
		return fmt.Errorf("invalid purpose: %s", r.Purpose)
	}
	switch r.Freq {
	case FreqOnce:
		return nil
	case FreqInterval:
		if r.EveryMinutes <= 0 {
			return fmt.Errorf("every_minutes must be positive for interval rules")
		}
		return nil
	case FreqDaily:
		if len(r.Times) == 0 {
			return fmt.Errorf("daily rules need at least one clock time")
		}
		for _, ct := range r.Times {
			if _, _, err := parseClockTime(ct); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid freq: %s", r.Freq)
	}
}

// OccurrenceID derives the deterministic identity of the seq-th occurrence.
// Two queries over overlapping windows therefore name the same instant by
// the same ID.
func (r Rule) OccurrenceID(seq int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.EntityID.String()+"#"+strconv.Itoa(seq)))
}

// OccurrencesUntil expands the rule into every occurrence scheduled at or
// before the given instant. Expansion is a pure function of (rule, until,
// loc): it never consults the wall clock, so repeated queries are
// consistent. Occurrences before the rule's NotBefore watermark come back
// already skipped; they were cancelled while the owning entity was paused
// and are never resurrected.
func (r Rule) OccurrencesUntil(until time.Time, loc *time.Location) []Occurrence {
	var out []Occurrence
	for seq, t := range r.scheduleTimes(until, loc) {
		status := StatusPending
		if r.NotBefore != nil && t.Before(*r.NotBefore) {
			status = StatusSkipped
		}
		out = append(out, Occurrence{
			ID:          r.OccurrenceID(seq),
			EntityID:    r.EntityID,
			Purpose:     r.Purpose,
			Seq:         seq,
			ScheduledAt: t,
			Status:      status,
		})
	}
	return out
}

// scheduleTimes returns the ordered instants of the rule up to and
// including until, bounded by End, Count, and maxExpansion.
func (r Rule) scheduleTimes(until time.Time, loc *time.Location) []time.Time {
	if r.End != nil && r.End.Before(until) {
		until = *r.End
	}

	var times []time.Time
	push := func(t time.Time) bool {
		if t.After(until) || len(times) >= maxExpansion {
			return false
		}
		if r.Count != nil && len(times) >= *r.Count {
			return false
		}
		times = append(times, t)
		return true
	}

	switch r.Freq {
	case FreqOnce:
		push(r.Start.In(loc))

	case FreqInterval:
		step := time.Duration(r.EveryMinutes) * time.Minute
		// Start marks when the course begins, not the first dose: the first
		// occurrence lands one full interval after it.
		for t := r.Start.In(loc).Add(step); ; t = t.Add(step) {
			if !push(t) {
				break
			}
		}

	case FreqDaily:
		clocks := make([]string, len(r.Times))
		copy(clocks, r.Times)
		sort.Strings(clocks)

		start := r.Start.In(loc)
		// Walk day by day in the configured location so clock times stay
		// fixed across daylight-saving transitions.
		for day := 0; ; day++ {
			base := start.AddDate(0, 0, day)
			anyPushed := false
			for _, ct := range clocks {
				hh, mm, err := parseClockTime(ct)
				if err != nil {
					continue
				}
				t := time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, loc)
				if t.Before(start) {
					continue
				}
				if t.After(until) {
					return times
				}
				if !push(t) {
					return times
				}
				anyPushed = true
			}
			if !anyPushed && base.After(until) {
				return times
			}
			if len(times) >= maxExpansion {
				return times
			}
			if r.Count != nil && len(times) >= *r.Count {
				return times
			}
		}
	}

	return times
}

func parseClockTime(s string) (hh, mm int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	hh, err = strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock time %q", s)
	}
	mm, err = strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return hh, mm, nil
}
