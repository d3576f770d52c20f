package model

import (
	"strings"
	"time"
)

// RecurrenceKind is the class a free-text recurrence pattern resolves to.
type RecurrenceKind int

const (
	RecurrenceUnknown RecurrenceKind = iota
	RecurrenceDaily
	RecurrenceWeekly
	RecurrenceMonthly
)

func (k RecurrenceKind) String() string {
	switch k {
	case RecurrenceDaily:
		return "daily"
	case RecurrenceWeekly:
		return "weekly"
	case RecurrenceMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Recurrence is a classified recurrence pattern. Raw keeps the original text
// so unknown patterns can be reported as written.
type Recurrence struct {
	Kind RecurrenceKind
	Raw  string
}

// ClassifyRecurrence matches pattern case-insensitively as a substring against
// "daily", "weekly" and "monthly", in that order. Anything else is Unknown.
func ClassifyRecurrence(pattern string) Recurrence {
	lower := strings.ToLower(pattern)
	r := Recurrence{Kind: RecurrenceUnknown, Raw: pattern}
	switch {
	case strings.Contains(lower, "daily"):
		r.Kind = RecurrenceDaily
	case strings.Contains(lower, "weekly"):
		r.Kind = RecurrenceWeekly
	case strings.Contains(lower, "monthly"):
		r.Kind = RecurrenceMonthly
	}
	return r
}

// Next returns the occurrence after base. Monthly is a fixed 30-day offset,
// not a calendar month. The second result is false for unknown patterns.
func (r Recurrence) Next(base time.Time) (time.Time, bool) {
	switch r.Kind {
	case RecurrenceDaily:
		return base.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return base.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return base.AddDate(0, 0, 30), true
	default:
		return time.Time{}, false
	}
}
