package analytics

import (
	"fmt"
	"time"

	"github.com/Napageneral/chatscope/internal/reconcile"
)

// DateLayout is the calendar-date format used in reports and query params.
const DateLayout = "2006-01-02"

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateSpan returns the first and last calendar dates present in rows. Rows
// with a garbage timestamp are ignored.
func DateSpan(rows []reconcile.Row) (start, end time.Time, ok bool) {
	for _, r := range rows {
		if !r.HasValidTime() {
			continue
		}
		d := dateOf(r.Datetime)
		if !ok || d.Before(start) {
			start = d
		}
		if !ok || d.After(end) {
			end = d
		}
		ok = true
	}
	return start, end, ok
}

// daysBetween counts calendar days from start to end, exclusive of end.
// It works on Unix seconds so spans beyond time.Duration's range stay exact.
func daysBetween(start, end time.Time) int64 {
	return (dateOf(end).Unix() - dateOf(start).Unix()) / 86400
}

// FilterRange keeps rows whose UTC date lies in [start, end], both inclusive.
// A zero start or end leaves that side open.
func FilterRange(rows []reconcile.Row, start, end time.Time) []reconcile.Row {
	if start.IsZero() && end.IsZero() {
		return rows
	}
	s, e := dateOf(start), dateOf(end)
	out := make([]reconcile.Row, 0, len(rows))
	for _, r := range rows {
		d := dateOf(r.Datetime)
		if !start.IsZero() && d.Before(s) {
			continue
		}
		if !end.IsZero() && d.After(e) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParseDateArg parses a date argument into an inclusive start/end pair.
// Supports: "YYYY-MM-DD" (single day), "YYYY-MM" (month), "YYYY" (year)
func ParseDateArg(arg string) (start, end time.Time, err error) {
	if t, err := time.Parse(DateLayout, arg); err == nil {
		return t, t, nil
	}

	if t, err := time.Parse("2006-01", arg); err == nil {
		return t, t.AddDate(0, 1, -1), nil
	}

	if t, err := time.Parse("2006", arg); err == nil {
		return t, t.AddDate(1, 0, -1), nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("invalid date format '%s'. Use YYYY-MM-DD, YYYY-MM, or YYYY", arg)
}

// ParseRange turns optional start/end arguments into an inclusive range.
// Each side may use any ParseDateArg form; the start takes the beginning of
// its period and the end the last day of its period.
func ParseRange(startArg, endArg string) (start, end time.Time, err error) {
	if startArg != "" {
		if start, _, err = ParseDateArg(startArg); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endArg != "" {
		if _, end, err = ParseDateArg(endArg); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	return start, end, nil
}
