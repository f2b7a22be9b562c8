package timer

import (
	"errors"
	"testing"
	"time"
)

func mustNew(t *testing.T, cfg Config) *Timer {
	t.Helper()
	tm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tm
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"countdown", Config{Work: 30 * time.Minute}, false},
		{"flexible", Config{Flexible: true}, false},
		{"zero work", Config{}, true},
		{"negative break", Config{Work: time.Minute, Break: -time.Second}, true},
		{"negative cycles", Config{Work: time.Minute, Cycles: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSingleCountdownCompletes(t *testing.T) {
	tm := mustNew(t, Config{Work: 3 * time.Second})
	if tm.State() != Idle || tm.Remaining() != 3*time.Second {
		t.Fatalf("initial = %s/%v", tm.State(), tm.Remaining())
	}
	if ev := tm.Tick(time.Second); ev != nil {
		t.Errorf("tick while idle produced %v", ev)
	}
	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}

	tm.Tick(time.Second)
	tm.Tick(time.Second)
	if tm.Remaining() != time.Second {
		t.Errorf("remaining = %v, want 1s", tm.Remaining())
	}

	events := tm.Tick(time.Second)
	if len(events) != 1 || events[0].Kind != FocusCompleted {
		t.Fatalf("events = %v, want one FocusCompleted", events)
	}
	if events[0].Focused != 3*time.Second {
		t.Errorf("focused = %v, want 3s", events[0].Focused)
	}
	if tm.State() != Completed {
		t.Errorf("state = %s, want completed", tm.State())
	}
	if err := tm.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start after completion: err = %v", err)
	}
}

func TestPauseHoldsCountdown(t *testing.T) {
	tm := mustNew(t, Config{Work: 10 * time.Second})
	tm.Start()
	tm.Tick(4 * time.Second)
	if err := tm.Pause(); err != nil {
		t.Fatal(err)
	}
	tm.Tick(5 * time.Second)
	if tm.Remaining() != 6*time.Second {
		t.Errorf("remaining after paused tick = %v, want 6s", tm.Remaining())
	}
	if err := tm.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double pause: err = %v", err)
	}
	if err := tm.Start(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	tm.Tick(time.Second)
	if tm.Remaining() != 5*time.Second {
		t.Errorf("remaining after resume = %v, want 5s", tm.Remaining())
	}
}

func TestIntervalAlternatesWithLongBreak(t *testing.T) {
	cfg := Config{Work: 25 * time.Minute, Break: 5 * time.Minute, LongBreak: 20 * time.Minute, Cycles: 2}
	tm := mustNew(t, cfg)
	tm.Start()

	ev := tm.Tick(25 * time.Minute)
	if len(ev) != 1 || ev[0].Kind != FocusCompleted || ev[0].Cycle != 1 {
		t.Fatalf("first focus: %v", ev)
	}
	if tm.Phase() != Break || tm.Remaining() != 5*time.Minute {
		t.Fatalf("after first focus: %s %v", tm.Phase(), tm.Remaining())
	}

	ev = tm.Tick(5 * time.Minute)
	if len(ev) != 1 || ev[0].Kind != BreakCompleted {
		t.Fatalf("first break: %v", ev)
	}
	if tm.Phase() != Focus || tm.Remaining() != 25*time.Minute {
		t.Fatalf("after first break: %s %v", tm.Phase(), tm.Remaining())
	}

	tm.Tick(25 * time.Minute)
	if tm.Phase() != LongBreak || tm.Remaining() != 20*time.Minute {
		t.Errorf("after second focus: %s %v, want long break 20m", tm.Phase(), tm.Remaining())
	}
	if tm.Cycles() != 2 {
		t.Errorf("cycles = %d, want 2", tm.Cycles())
	}
	if tm.State() != Running {
		t.Errorf("interval timer should keep running, got %s", tm.State())
	}
}

func TestTickCarriesOverBoundaries(t *testing.T) {
	tm := mustNew(t, Config{Work: 10 * time.Second, Break: 5 * time.Second})
	tm.Start()

	events := tm.Tick(17 * time.Second)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != FocusCompleted || events[1].Kind != BreakCompleted {
		t.Errorf("events = %v", events)
	}
	if tm.Phase() != Focus || tm.Remaining() != 8*time.Second {
		t.Errorf("after carry: %s %v, want focus 8s", tm.Phase(), tm.Remaining())
	}
	if tm.Focused() != 2*time.Second {
		t.Errorf("focused = %v, want 2s", tm.Focused())
	}
}

func TestBreakOnlyEveryCycles(t *testing.T) {
	tm := mustNew(t, Config{Work: time.Minute, LongBreak: 10 * time.Minute, Cycles: 3})
	tm.Start()

	tm.Tick(time.Minute)
	if tm.Phase() != Focus {
		t.Errorf("after cycle 1 phase = %s, want focus", tm.Phase())
	}
	tm.Tick(2 * time.Minute)
	if tm.Phase() != LongBreak {
		t.Errorf("after cycle 3 phase = %s, want long break", tm.Phase())
	}
}

func TestFlexibleCountsUpUntilStopped(t *testing.T) {
	tm := mustNew(t, Config{Flexible: true})
	tm.Start()
	for i := 0; i < 90; i++ {
		if ev := tm.Tick(time.Second); ev != nil {
			t.Fatalf("flexible tick produced %v", ev)
		}
	}
	ev, err := tm.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != Stopped || ev.Focused != 90*time.Second {
		t.Errorf("stop event = %+v", ev)
	}
	if tm.State() != Completed {
		t.Errorf("state = %s", tm.State())
	}
}

func TestStopAndReset(t *testing.T) {
	tm := mustNew(t, Config{Work: time.Minute, Break: time.Minute})

	if _, err := tm.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("stop from idle: err = %v", err)
	}

	tm.Start()
	tm.Tick(90 * time.Second)
	tm.Pause()
	ev, err := tm.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Phase != Break || ev.Cycle != 1 || ev.Focused != 0 {
		t.Errorf("stop during break = %+v", ev)
	}

	tm.Reset()
	if tm.State() != Idle || tm.Phase() != Focus || tm.Cycles() != 0 || tm.Remaining() != time.Minute {
		t.Errorf("after reset: %s %s %d %v", tm.State(), tm.Phase(), tm.Cycles(), tm.Remaining())
	}
}
