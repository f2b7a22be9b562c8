package progress

import (
	"time"

	"github.com/dukerupert/progresspoint/internal/model"
)

// StartOfDay strips the time of day, keeping t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// Today returns the calendar date of now as midnight UTC, so it compares
// directly with dates from ParseDate.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays moves d by n whole calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// Days lists every calendar date from 'from' to 'to' inclusive. The result
// is empty when to is before from.
func Days(from, to time.Time) []string {
	from, to = StartOfDay(from), StartOfDay(to)
	var out []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDate(d))
	}
	return out
}
