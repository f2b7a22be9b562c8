// Package tui renders session timers in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/progresspoint/internal/timer"
)

const (
	tickInterval = time.Second
	saveTimeout  = 10 * time.Second
)

// SaveFunc persists a finished focus block or stopped session. It runs in
// its own command goroutine, so a slow or failing save never holds up the
// countdown.
type SaveFunc func(ctx context.Context, ev timer.Event) error

type tickMsg struct {
	id int
	at time.Time
}

type savedMsg struct {
	ev  timer.Event
	err error
}

// FocusModel drives a timer.Timer once a second.
type FocusModel struct {
	title string
	timer *timer.Timer
	save  SaveFunc
	keys  keyMap
	help  help.Model
	bar   progress.Model
	now   func() time.Time

	tickID   int
	lastTick time.Time
	saved    int
	status   string
	failed   bool
	quitting bool
}

func NewFocusModel(title string, t *timer.Timer, save SaveFunc) FocusModel {
	return FocusModel{
		title: title,
		timer: t,
		save:  save,
		keys:  defaultKeyMap(),
		help:  help.New(),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		now:   time.Now,
	}
}

func (m FocusModel) Init() tea.Cmd {
	return nil
}

func (m FocusModel) tick() tea.Cmd {
	id := m.tickID
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg{id: id, at: t}
	})
}

func (m FocusModel) saveCmd(ev timer.Event) tea.Cmd {
	if m.save == nil {
		return nil
	}
	save := m.save
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return savedMsg{ev: ev, err: save(ctx, ev)}
	}
}

func (m FocusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if msg.id != m.tickID || m.timer.State() != timer.Running {
			return m, nil
		}
		elapsed := msg.at.Sub(m.lastTick)
		m.lastTick = msg.at
		var cmds []tea.Cmd
		for _, ev := range m.timer.Tick(elapsed) {
			cmds = append(cmds, m.announce(ev)...)
		}
		if m.timer.State() == timer.Running {
			cmds = append(cmds, m.tick())
		}
		return m, tea.Batch(cmds...)

	case savedMsg:
		if msg.err != nil {
			m.failed = true
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.saved++
		m.failed = false
		m.status = fmt.Sprintf("saved %s (%s)", msg.ev.Kind, msg.ev.Focused.Round(time.Second))
		return m, nil
	}
	return m, nil
}

// announce turns a timer event into status text and, for focus time worth
// keeping, a save command.
func (m *FocusModel) announce(ev timer.Event) []tea.Cmd {
	switch ev.Kind {
	case timer.FocusCompleted:
		m.status = fmt.Sprintf("focus block %d done", ev.Cycle)
		return []tea.Cmd{m.saveCmd(ev)}
	case timer.BreakCompleted:
		m.status = "break over, back to focus"
	case timer.Stopped:
		m.status = "session stopped"
		if ev.Focused > 0 {
			return []tea.Cmd{m.saveCmd(ev)}
		}
	}
	return nil
}

func (m FocusModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if m.timer.State() == timer.Running {
			m.timer.Pause()
			m.tickID++
			m.status = "paused"
			return m, nil
		}
		if err := m.timer.Start(); err != nil {
			m.status = "session finished, press r to reset"
			return m, nil
		}
		m.tickID++
		m.lastTick = m.now()
		m.status = ""
		return m, m.tick()

	case key.Matches(msg, m.keys.Stop):
		ev, err := m.timer.Stop()
		if err != nil {
			return m, nil
		}
		m.tickID++
		return m, tea.Batch(m.announce(ev)...)

	case key.Matches(msg, m.keys.Reset):
		m.timer.Reset()
		m.tickID++
		m.status = "reset"
		return m, nil
	}
	return m, nil
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)
	secs := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}

func (m FocusModel) phaseLength() time.Duration {
	cfg := m.timer.Config()
	switch m.timer.Phase() {
	case timer.Break:
		return cfg.Break
	case timer.LongBreak:
		return cfg.LongBreak
	}
	return cfg.Work
}

func (m FocusModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	cfg := m.timer.Config()
	phase := m.timer.Phase()
	label := phaseStyle.Render(phase.String())
	if phase != timer.Focus {
		label = breakStyle.Render(phase.String())
	}
	b.WriteString(fmt.Sprintf("%s  %s", label, statusStyle.Render(m.timer.State().String())))
	if cfg.Cycles > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  blocks %d", m.timer.Cycles())))
	}
	b.WriteString("\n")

	if cfg.Flexible {
		b.WriteString(clockStyle.Render(formatClock(m.timer.Focused())))
		b.WriteString("\n")
	} else {
		b.WriteString(clockStyle.Render(formatClock(m.timer.Remaining())))
		b.WriteString("\n")
		total := m.phaseLength()
		done := 0.0
		if total > 0 {
			done = 1 - float64(m.timer.Remaining())/float64(total)
		}
		b.WriteString(m.bar.ViewAs(done))
		b.WriteString("\n")
	}

	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return docStyle.Render(b.String())
}

// Saved reports how many saves succeeded.
func (m FocusModel) Saved() int {
	return m.saved
}
