package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the civil date format used throughout configuration and exports
const DateLayout = "2006-01-02"

// Kind is the category of an on-call shift
type Kind string

const (
	KindNight   Kind = "Night"
	KindWeekend Kind = "Weekend"
	KindHoliday Kind = "Holiday"

	// KindAny is used where a kind is optional (e.g. availability checks for the whole day)
	KindAny Kind = ""
)

// Kinds lists every schedulable kind in pipeline order
var Kinds = []Kind{KindHoliday, KindWeekend, KindNight}

func (k Kind) IsValid() bool {
	return k == KindNight || k == KindWeekend || k == KindHoliday
}

// ParseKind parses a kind name case-insensitively
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("unknown shift kind %q", s)
}

// Shift is a single bookable on-call interval.
//
// Shifts are created by the calendar builder and only mutated through Roster.Assign.
type Shift struct {
	// Index is the position of the shift in the chronological shift list
	Index int

	Kind Kind

	// Label is the holiday name (empty for ordinary nights and weekends)
	Label string

	// Date is the anchor civil date at midnight; availability is checked against it
	Date time.Time

	Start time.Time
	End   time.Time

	// Physician is the assigned physician's name, empty while unassigned
	Physician string

	// Included marks shifts that take part in fairness computation. Shifts pre-assigned
	// from a previous period may be listed but excluded.
	Included bool

	// Trace holds the scheduler's debug output for this assignment
	Trace string
}

// IsAssigned returns true once a physician holds the shift
func (s *Shift) IsAssigned() bool {
	return s.Physician != ""
}

// DateKey returns the anchor date formatted as YYYY-MM-DD
func (s *Shift) DateKey() string {
	return s.Date.Format(DateLayout)
}

// Duration returns the length of the shift
func (s *Shift) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func (s *Shift) String() string {
	if s.Label != "" {
		return fmt.Sprintf("%s %s (%s)", s.DateKey(), s.Kind, s.Label)
	}
	return fmt.Sprintf("%s %s", s.DateKey(), s.Kind)
}

// CivilDate truncates t to midnight in its own location
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats a time as a civil date key
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b (b - a)
func DaysBetween(a, b time.Time) int {
	ca := CivilDate(a)
	cb := CivilDate(b)
	// Go through UTC dates so DST transitions never produce 23h or 25h days
	ua := time.Date(ca.Year(), ca.Month(), ca.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(cb.Year(), cb.Month(), cb.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
