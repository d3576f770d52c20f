package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	naiveLayout      = "2006-01-02T15:04:05"
	naiveFracLayout  = "2006-01-02T15:04:05.000000"
	naiveParseLayout = "2006-01-02T15:04:05.999999999"

	// Zoned values are written with a numeric offset, never "Z".
	zonedLayout     = "2006-01-02T15:04:05-07:00"
	zonedFracLayout = "2006-01-02T15:04:05.000000-07:00"
)

// Layouts carrying a zone offset, tried before the naive ones.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without a zone; such values are read in the caller's location.
var naiveLayouts = []string{
	naiveParseLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DueTime is a parsed due date that remembers whether the source text
// carried a zone, so derived dates can be written back in the same form.
type DueTime struct {
	time.Time
	Zoned bool
}

// ParseDueDate reads the stored due date text. Values without a zone offset
// are interpreted in loc.
func ParseDueDate(raw string, loc *time.Location) (DueTime, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DueTime{}, fmt.Errorf("empty due date")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DueTime{Time: t, Zoned: true}, nil
		}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return DueTime{Time: t}, nil
		}
	}
	return DueTime{}, fmt.Errorf("unrecognised due date %q", raw)
}

// Format renders the due time for storage as ISO-8601 with a "T" separator,
// microseconds only when present, and a numeric offset for zoned values.
func (d DueTime) Format() string {
	frac := d.Time.Nanosecond() != 0
	switch {
	case d.Zoned && frac:
		return d.Time.Format(zonedFracLayout)
	case d.Zoned:
		return d.Time.Format(zonedLayout)
	case frac:
		return d.Time.Format(naiveFracLayout)
	default:
		return d.Time.Format(naiveLayout)
	}
}

// With returns a DueTime moved to t, keeping the representation.
func (d DueTime) With(t time.Time) DueTime {
	return DueTime{Time: t, Zoned: d.Zoned}
}
