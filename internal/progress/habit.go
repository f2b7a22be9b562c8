package progress

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrFutureDay     = errors.New("you can only mark days up to today")
	ErrOutsideWindow = errors.New("date is outside the habit window")
	ErrOutOfSequence = errors.New("please complete previous days first")
)

// HabitWindow is the fixed run of days a habit covers, numbered from 1.
type HabitWindow struct {
	Start    time.Time
	Duration int
}

// NewHabitWindow parses the habit start date.
func NewHabitWindow(startDate string, duration int) (HabitWindow, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return HabitWindow{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	return HabitWindow{Start: start, Duration: duration}, nil
}

// End is the last day of the window.
func (w HabitWindow) End() time.Time {
	return AddDays(w.Start, w.Duration-1)
}

// DayNumber is the 1-indexed position of date within the window. It may be
// out of range; use Contains to check.
func (w HabitWindow) DayNumber(date time.Time) int {
	return int(StartOfDay(date).Sub(w.Start).Hours()/24) + 1
}

func (w HabitWindow) Contains(date time.Time) bool {
	n := w.DayNumber(date)
	return n >= 1 && n <= w.Duration
}

// Dates lists the window's days in order.
func (w HabitWindow) Dates() []string {
	if w.Duration <= 0 {
		return nil
	}
	return Days(w.Start, w.End())
}

// CheckAllowed applies the habit marking rules. Any change must fall inside
// the window. Marking a day as done additionally requires the day not to be
// in the future and every earlier day of the window to be marked already.
// Unmarking has no ordering rule.
func CheckAllowed(w HabitWindow, checked map[string]bool, date, today time.Time, wantChecked bool) error {
	date = StartOfDay(date)
	if !w.Contains(date) {
		return ErrOutsideWindow
	}
	if !wantChecked {
		return nil
	}
	if date.After(StartOfDay(today)) {
		return ErrFutureDay
	}
	for d := w.Start; d.Before(date); d = AddDays(d, 1) {
		if !checked[FormatDate(d)] {
			return ErrOutOfSequence
		}
	}
	return nil
}
