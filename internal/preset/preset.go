// Package preset resolves named reporting periods into calendar date
// ranges that never extend past today.
package preset

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Preset names.
const (
	Today     = "Today"
	Yesterday = "Yesterday"
	ThisWeek  = "This Week"
	LastWeek  = "Last Week"
	ThisMonth = "This Month"
	LastMonth = "Last Month"
	ThisYear  = "This Year"
	LastYear  = "Last Year"

	// Custom marks a range picked date by date.
	Custom = "custom"
)

// Names lists the presets in menu order.
var Names = []string{Today, Yesterday, ThisWeek, LastWeek, ThisMonth, LastMonth, ThisYear, LastYear}

var ErrUnknownPreset = errors.New("unknown date preset")

// Range is an inclusive pair of calendar dates.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseWeekStart accepts "sunday" or "monday" (any case).
func ParseWeekStart(value string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	default:
		return time.Sunday, fmt.Errorf("unsupported week start %q", value)
	}
}

// Day drops the clock part of t, keeping its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Resolve maps a preset name to its date range relative to today.
// Ranges covering the current week, month or year end at today.
func Resolve(name string, today time.Time, weekStart time.Weekday) (Range, error) {
	t := Day(today)
	y, m, _ := t.Date()
	loc := t.Location()

	switch name {
	case Today:
		return Range{Start: t, End: t}, nil
	case Yesterday:
		d := t.AddDate(0, 0, -1)
		return Range{Start: d, End: d}, nil
	case ThisWeek:
		start := startOfWeek(t, weekStart)
		return Range{Start: start, End: clamp(start.AddDate(0, 0, 6), t)}, nil
	case LastWeek:
		start := startOfWeek(t.AddDate(0, 0, -7), weekStart)
		return Range{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case ThisMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: clamp(start.AddDate(0, 1, -1), t)}, nil
	case LastMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Range{Start: first.AddDate(0, -1, 0), End: first.AddDate(0, 0, -1)}, nil
	case ThisYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: clamp(time.Date(y, time.December, 31, 0, 0, 0, 0, loc), t)}, nil
	case LastYear:
		return Range{
			Start: time.Date(y-1, time.January, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y-1, time.December, 31, 0, 0, 0, 0, loc),
		}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// Accept reports whether a manually edited pair may replace the current
// one: unset endpoints are ignored, set ones must keep start <= end and
// stay on or before today. Endpoints are never swapped.
func Accept(start, end, today time.Time) bool {
	t := Day(today)
	if !start.IsZero() && Day(start).After(t) {
		return false
	}
	if !end.IsZero() && Day(end).After(t) {
		return false
	}
	if !start.IsZero() && !end.IsZero() && Day(start).After(Day(end)) {
		return false
	}
	return true
}

func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return t.AddDate(0, 0, -offset)
}

func clamp(d, today time.Time) time.Time {
	if d.After(today) {
		return today
	}
	return d
}
