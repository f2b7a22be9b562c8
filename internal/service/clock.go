package service

import (
	"time"

	"github.com/dukerupert/progresspoint/internal/progress"
)

// Clock returns the current instant. Services read "today" through it.
type Clock func() time.Time

// SystemClock reports time.Now in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) today() time.Time {
	return progress.Today(c())
}

// parseDate validates a YYYY-MM-DD field.
func parseDate(field, value string) (time.Time, error) {
	d, err := progress.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid(field, "must be a date formatted YYYY-MM-DD")
	}
	return d, nil
}
