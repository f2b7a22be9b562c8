package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/study"
	"github.com/dukerupert/progresspoint/internal/timer"
	"github.com/dukerupert/progresspoint/internal/tui"
)

type TechniquesCmd struct{}

func (c *TechniquesCmd) Run(a *app) error {
	techniques, err := a.api.Techniques(a.ctx)
	if err != nil {
		if !client.IsOffline(err) {
			return err
		}
		// The catalog ships with the client too.
		techniques = study.Catalog()
	}
	rows := make([][]string, 0, len(techniques))
	for _, t := range techniques {
		rows = append(rows, []string{t.ID, t.Title, timerSummary(t.Timer)})
	}
	return a.emit(techniques, []string{"ID", "Technique", "Timer"}, rows, "No techniques.")
}

func timerSummary(cfg *timer.Config) string {
	if cfg == nil {
		return ""
	}
	if cfg.Flexible {
		return "flexible"
	}
	parts := []string{shortDuration(cfg.Work) + " focus"}
	if cfg.Break > 0 {
		parts = append(parts, shortDuration(cfg.Break)+" break")
	}
	if cfg.LongBreak > 0 && cfg.Cycles > 0 {
		parts = append(parts, fmt.Sprintf("%s long break every %d", shortDuration(cfg.LongBreak), cfg.Cycles))
	}
	return strings.Join(parts, ", ")
}

func shortDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}

type FocusCmd struct {
	Technique string        `arg:"" optional:"" default:"pomodoro" help:"Technique id, see ppctl techniques."`
	Work      time.Duration `help:"Override the focus block length."`
}

func (c *FocusCmd) Run(a *app) error {
	tech, ok := study.Lookup(c.Technique)
	if !ok {
		return fmt.Errorf("unknown technique %q", c.Technique)
	}
	if !tech.HasTimer() {
		return fmt.Errorf("%s has no timer", tech.Title)
	}
	cfg := *tech.Timer
	if c.Work > 0 {
		cfg.Work = c.Work
	}
	t, err := timer.New(cfg)
	if err != nil {
		return err
	}

	save := func(ctx context.Context, ev timer.Event) error {
		_, err := a.api.LogStudy(ctx, tech.ID, seconds(ev.Focused), ev.Kind == timer.FocusCompleted)
		return err
	}
	return runFocus(a, tui.NewFocusModel(tech.Title, t, save))
}

type MeditateCmd struct {
	Track   int64 `arg:"" optional:"" help:"Track id to meditate with."`
	Minutes int   `short:"m" help:"Length of the session." default:"10"`
}

func (c *MeditateCmd) Run(a *app) error {
	if c.Minutes <= 0 {
		return fmt.Errorf("minutes must be positive")
	}
	title := "Meditation"
	var trackID *int64
	if c.Track != 0 {
		tracks, err := a.api.Tracks(a.ctx)
		if err != nil {
			return err
		}
		for _, tr := range tracks {
			if tr.ID == c.Track {
				title = tr.Name
				trackID = &tr.ID
				break
			}
		}
		if trackID == nil {
			return fmt.Errorf("no meditation track %d", c.Track)
		}
	}

	t, err := timer.New(timer.Config{Work: time.Duration(c.Minutes) * time.Minute})
	if err != nil {
		return err
	}
	save := func(ctx context.Context, ev timer.Event) error {
		_, err := a.api.LogMeditation(ctx, trackID, seconds(ev.Focused), ev.Kind == timer.FocusCompleted)
		return err
	}
	return runFocus(a, tui.NewFocusModel(title, t, save))
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func runFocus(a *app, m tui.FocusModel) error {
	final, err := tea.NewProgram(m, tea.WithContext(a.ctx)).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(tui.FocusModel); ok && fm.Saved() > 0 {
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("Logged %d session(s).", fm.Saved())))
	}
	return nil
}
