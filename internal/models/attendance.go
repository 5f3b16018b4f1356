package models

import (
	"fmt"
	"time"
)

// NoValue is shown in place of a time or duration that is not known yet.
const NoValue = "--:--"

// Display layouts.
const (
	ClockLayout = "03:04 PM"
	DateLayout  = "Jan 2, 2006 · Monday"
)

// WorkMode is where the employee works from for the day.
type WorkMode string

const (
	WorkModeNone   WorkMode = ""
	WorkModeWFH    WorkMode = "WFH"
	WorkModeOffice WorkMode = "Office"
)

// WorkModes lists the selectable modes in menu order.
var WorkModes = []WorkMode{WorkModeWFH, WorkModeOffice}

// Label returns the human-readable name of the mode.
func (m WorkMode) Label() string {
	switch m {
	case WorkModeWFH:
		return "Work from Home"
	case WorkModeOffice:
		return "In Office"
	default:
		return "Select work mode"
	}
}

// Valid reports whether m is one of the known modes.
func (m WorkMode) Valid() bool {
	return m == WorkModeWFH || m == WorkModeOffice
}

// AttendanceAction is the operation a submission performs.
type AttendanceAction string

const (
	ActionCheckIn  AttendanceAction = "checkin"
	ActionCheckOut AttendanceAction = "checkout"
)

// Verb returns the action as used in user-facing messages.
func (a AttendanceAction) Verb() string {
	if a == ActionCheckOut {
		return "check out"
	}
	return "check in"
}

// AttendanceStats is the displayed summary for the current day. The display
// strings are always derived from the instants, never from server text.
type AttendanceStats struct {
	CheckInInstant  *time.Time
	CheckOutInstant *time.Time
	FirstCheckIn    string
	LastCheckOut    string
	TotalHours      string
}

// EmptyStats returns stats with every field unset.
func EmptyStats() AttendanceStats {
	return AttendanceStats{
		FirstCheckIn: NoValue,
		LastCheckOut: NoValue,
		TotalHours:   NoValue,
	}
}

// NewAttendanceStats builds display stats from raw instants in loc. Total
// hours are only filled when both instants are known.
func NewAttendanceStats(checkIn, checkOut *time.Time, loc *time.Location) AttendanceStats {
	stats := EmptyStats()
	stats.CheckInInstant = copyTime(checkIn)
	stats.CheckOutInstant = copyTime(checkOut)
	if checkIn != nil {
		stats.FirstCheckIn = FormatClock(*checkIn, loc)
	}
	if checkOut != nil {
		stats.LastCheckOut = FormatClock(*checkOut, loc)
	}
	if checkIn != nil && checkOut != nil {
		stats.TotalHours = CalculateTotalHours(*checkIn, *checkOut)
	}
	return stats
}

// Open reports whether a check-in exists without a matching check-out.
func (s AttendanceStats) Open() bool {
	return s.CheckInInstant != nil && s.CheckOutInstant == nil
}

// Completed reports whether both instants are known.
func (s AttendanceStats) Completed() bool {
	return s.CheckInInstant != nil && s.CheckOutInstant != nil
}

// WithLiveHours returns a copy whose total hours run from check-in to now.
// Only open days are affected.
func (s AttendanceStats) WithLiveHours(now time.Time) AttendanceStats {
	if !s.Open() {
		return s
	}
	s.TotalHours = CalculateTotalHours(*s.CheckInInstant, now)
	return s
}

// Equal compares the instants and display strings of two stats.
func (s AttendanceStats) Equal(o AttendanceStats) bool {
	return timePtrEqual(s.CheckInInstant, o.CheckInInstant) &&
		timePtrEqual(s.CheckOutInstant, o.CheckOutInstant) &&
		s.FirstCheckIn == o.FirstCheckIn &&
		s.LastCheckOut == o.LastCheckOut &&
		s.TotalHours == o.TotalHours
}

// AttendanceEvent is a locally recorded successful check-in or check-out.
type AttendanceEvent struct {
	OccurredAt time.Time
	Action     AttendanceAction
	WorkMode   WorkMode
	RequestID  string
	Coordinates
	ID int64
}

// DailyTotal is the worked time of one local calendar day.
type DailyTotal struct {
	Day     time.Time
	Minutes int
}

// Hours returns the total as fractional hours.
func (d DailyTotal) Hours() float64 {
	return float64(d.Minutes) / 60
}

// FormatClock renders t as a zero-padded 12-hour clock in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(ClockLayout)
}

// FormatDate renders the long date shown under the greeting.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// CalculateTotalHours returns the elapsed whole minutes between in and out as
// HH:MM. A non-positive span yields NoValue.
func CalculateTotalHours(in, out time.Time) string {
	diff := out.Sub(in)
	if diff <= 0 {
		return NoValue
	}
	minutes := int(diff / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Greeting returns the salutation for the hour of day.
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good Morning"
	case hour >= 12 && hour < 17:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
