// Package timer implements the focus/break countdown used by study and
// meditation sessions. A Timer is a plain state machine: callers feed it
// elapsed time through Tick and user actions through Start, Pause, Reset
// and Stop, and act on the Events it returns. It never sleeps or performs
// I/O, so a slow save can never hold up the countdown.
package timer

import (
	"errors"
	"fmt"
	"time"
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Phase int

const (
	Focus Phase = iota
	Break
	LongBreak
)

func (p Phase) String() string {
	switch p {
	case Focus:
		return "focus"
	case Break:
		return "break"
	case LongBreak:
		return "long break"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Config describes one timer preset. A zero Break and LongBreak make a
// single countdown that completes when Work runs out. Flexible timers count
// up from zero until stopped and ignore the other fields.
type Config struct {
	Work      time.Duration `json:"work"`
	Break     time.Duration `json:"break,omitempty"`
	LongBreak time.Duration `json:"long_break,omitempty"`
	// Cycles is the number of focus blocks between long breaks.
	Cycles   int  `json:"cycles,omitempty"`
	Flexible bool `json:"flexible,omitempty"`
}

func (c Config) interval() bool {
	return c.Break > 0 || c.LongBreak > 0
}

func (c Config) Validate() error {
	if c.Flexible {
		return nil
	}
	if c.Work <= 0 {
		return errors.New("work duration must be positive")
	}
	if c.Break < 0 || c.LongBreak < 0 {
		return errors.New("break durations cannot be negative")
	}
	if c.Cycles < 0 {
		return errors.New("cycles cannot be negative")
	}
	return nil
}

type EventKind int

const (
	// FocusCompleted fires when a focus block runs down to zero.
	FocusCompleted EventKind = iota
	// BreakCompleted fires when a break (short or long) ends.
	BreakCompleted
	// Stopped fires when the user ends a session early or ends a
	// flexible session.
	Stopped
)

func (k EventKind) String() string {
	switch k {
	case FocusCompleted:
		return "focus completed"
	case BreakCompleted:
		return "break completed"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a transition the caller may want to persist or announce.
// Focused is the focus time the event accounts for.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Focused time.Duration
	// Cycle is the number of focus blocks completed so far.
	Cycle int
}

var ErrInvalidTransition = errors.New("invalid timer transition")

type Timer struct {
	cfg       Config
	state     State
	phase     Phase
	remaining time.Duration
	// focused is the focus time spent in the current focus block, or the
	// whole count-up for flexible timers.
	focused time.Duration
	cycles  int
}

func New(cfg Config) (*Timer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Timer{cfg: cfg}
	t.Reset()
	return t, nil
}

func (t *Timer) Config() Config { return t.cfg }
func (t *Timer) State() State   { return t.state }
func (t *Timer) Phase() Phase   { return t.phase }
func (t *Timer) Cycles() int    { return t.cycles }

// Remaining is the time left in the current phase. It is zero for
// flexible timers.
func (t *Timer) Remaining() time.Duration { return t.remaining }

// Focused is the focus time accumulated in the current block.
func (t *Timer) Focused() time.Duration { return t.focused }

// Start begins or resumes the countdown.
func (t *Timer) Start() error {
	switch t.state {
	case Idle, Paused:
		t.state = Running
		return nil
	}
	return fmt.Errorf("%w: start from %s", ErrInvalidTransition, t.state)
}

func (t *Timer) Pause() error {
	if t.state != Running {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, t.state)
	}
	t.state = Paused
	return nil
}

// Reset returns to Idle at the start of a fresh focus block and clears the
// cycle count. It is valid from any state.
func (t *Timer) Reset() {
	t.state = Idle
	t.phase = Focus
	t.cycles = 0
	t.focused = 0
	if t.cfg.Flexible {
		t.remaining = 0
	} else {
		t.remaining = t.cfg.Work
	}
}

// Stop ends a running or paused session early. The returned Stopped event
// carries the focus time of the unfinished block.
func (t *Timer) Stop() (Event, error) {
	if t.state != Running && t.state != Paused {
		return Event{}, fmt.Errorf("%w: stop from %s", ErrInvalidTransition, t.state)
	}
	ev := Event{Kind: Stopped, Phase: t.phase, Focused: t.focused, Cycle: t.cycles}
	t.state = Completed
	return ev, nil
}

// Tick advances a running timer by d. A tick longer than the current phase
// carries over into the following phases, so every boundary crossed yields
// its own event, in order.
func (t *Timer) Tick(d time.Duration) []Event {
	if t.state != Running || d <= 0 {
		return nil
	}
	if t.cfg.Flexible {
		t.focused += d
		return nil
	}

	var events []Event
	for d > 0 && t.state == Running {
		if d < t.remaining {
			t.remaining -= d
			if t.phase == Focus {
				t.focused += d
			}
			break
		}
		d -= t.remaining
		if t.phase == Focus {
			t.focused += t.remaining
		}
		t.remaining = 0
		events = append(events, t.advance())
	}
	return events
}

// advance moves past a phase that just reached zero.
func (t *Timer) advance() Event {
	if t.phase != Focus {
		ev := Event{Kind: BreakCompleted, Phase: t.phase, Cycle: t.cycles}
		t.phase = Focus
		t.remaining = t.cfg.Work
		t.focused = 0
		return ev
	}

	t.cycles++
	ev := Event{Kind: FocusCompleted, Phase: Focus, Focused: t.focused, Cycle: t.cycles}
	t.focused = 0

	if !t.cfg.interval() {
		t.state = Completed
		return ev
	}

	switch {
	case t.cfg.LongBreak > 0 && t.cfg.Cycles > 0 && t.cycles%t.cfg.Cycles == 0:
		t.phase = LongBreak
		t.remaining = t.cfg.LongBreak
	case t.cfg.Break > 0:
		t.phase = Break
		t.remaining = t.cfg.Break
	default:
		t.remaining = t.cfg.Work
	}
	return ev
}
