package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/progresspoint/internal/progress"
	"github.com/dukerupert/progresspoint/internal/tui"
)

type HabitCmd struct {
	List  HabitListCmd  `cmd:"" default:"withargs" help:"List habits."`
	Add   HabitAddCmd   `cmd:"" help:"Start a habit. Opens a form when no name is given."`
	Check HabitCheckCmd `cmd:"" help:"Mark a day of a habit."`
	Show  HabitShowCmd  `cmd:"" help:"Show a habit's calendar and progress."`
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(a *app) error {
	habits, src, err := a.cache.ListHabits(a.ctx)
	if err != nil {
		return err
	}
	a.sourceNote(src)
	return a.emit(habits, []string{"ID", "Habit", "Start", "Length"}, habitRows(habits), "No habits yet.")
}

type HabitAddCmd struct {
	Name     []string `arg:"" optional:"" help:"Habit name."`
	Start    string   `help:"First day (YYYY-MM-DD). Defaults to today."`
	Duration int      `help:"Length in days." default:"21"`
}

func (c *HabitAddCmd) Run(a *app) error {
	draft := tui.HabitDraft{
		Name:      strings.Join(c.Name, " "),
		StartDate: c.Start,
		Duration:  fmt.Sprint(c.Duration),
	}
	if strings.TrimSpace(draft.Name) == "" {
		if err := tui.HabitForm(&draft).RunWithContext(a.ctx); err != nil {
			return err
		}
	}
	h, src, err := a.cache.CreateHabit(a.ctx, draft.Request())
	if err != nil {
		return err
	}
	savedNote(a.out, fmt.Sprintf("Started %q (%s), %d days from %s", h.Name, ref(h.ServerID, h.LocalID), h.Duration, h.StartDate), src)
	return nil
}

type HabitCheckCmd struct {
	Ref     string `arg:"" help:"Habit id."`
	Date    string `help:"Day to mark (YYYY-MM-DD). Defaults to today."`
	Uncheck bool   `help:"Clear the mark instead."`
}

func (c *HabitCheckCmd) Run(a *app) error {
	src, err := a.cache.CheckHabit(a.ctx, c.Ref, c.Date, !c.Uncheck)
	if err != nil {
		return err
	}
	what := "Checked"
	if c.Uncheck {
		what = "Unchecked"
	}
	if c.Date != "" {
		what += " " + c.Date
	}
	savedNote(a.out, what, src)
	return nil
}

type HabitShowCmd struct {
	Ref string `arg:"" help:"Habit id."`
}

func (c *HabitShowCmd) Run(a *app) error {
	h, err := a.mirror.FindHabit(a.ctx, c.Ref)
	if err != nil {
		return err
	}
	dates, src, err := a.cache.HabitChecks(a.ctx, c.Ref)
	if err != nil {
		return err
	}
	window, err := progress.NewHabitWindow(h.StartDate, h.Duration)
	if err != nil {
		return err
	}
	marked := make(map[string]bool, len(dates))
	for _, d := range dates {
		marked[d] = true
	}

	a.sourceNote(src)
	fmt.Fprintln(a.out, headerStyle.Render(h.Name))
	fmt.Fprintln(a.out, habitCalendar(window, marked, progress.Today(time.Now())))

	checked := 0
	for _, d := range window.Dates() {
		if marked[d] {
			checked++
		}
	}
	pct := progress.Percentage(checked, h.Duration)
	fmt.Fprintf(a.out, "%s %d/%d days, %d%%\n", progressBar(pct, 30), checked, h.Duration, pct)
	return nil
}

// habitCalendar renders one cell per day of the window, seven to a row.
func habitCalendar(w progress.HabitWindow, marked map[string]bool, today time.Time) string {
	todayStr := progress.FormatDate(today)

	var b strings.Builder
	for i, d := range w.Dates() {
		cell := mutedStyle.Render("·")
		switch {
		case marked[d]:
			cell = okStyle.Render("●")
		case d == todayStr:
			cell = pendingStyle.Render("○")
		}
		b.WriteString(cell)
		if (i+1)%7 == 0 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " \n")
}
