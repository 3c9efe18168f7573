package process

import (
	"context"
	"time"
)

// State is a state of the resource monitor. Every state except Running is terminal.
type State int

const (
	Running State = iota
	TimedOut
	MemExceeded
	ExitedOk
	ExitedError
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case TimedOut:
		return "timed out"
	case MemExceeded:
		return "memory exceeded"
	case ExitedOk:
		return "exited ok"
	case ExitedError:
		return "exited with error"
	}
	return "unknown"
}

// Terminal reports whether the monitor stops polling in this state.
func (s State) Terminal() bool {
	return s != Running
}

// Limits are the ceilings enforced on a single run.
type Limits struct {
	Time   time.Duration
	Memory uint64 // bytes
}

// Sample is one observation of the child process.
type Sample struct {
	Elapsed  time.Duration
	RSS      uint64
	Exited   bool
	ExitCode int
}

// Target is a live child process as seen by the monitor.
type Target interface {
	// Done is closed once the process has been reaped.
	Done() <-chan struct{}
	// RSS samples the current resident set size in bytes.
	// It may fail if the process vanished between checks.
	RSS() (uint64, error)
	// Kill terminates the process. Reaping is reported through Done.
	Kill() error
	// ExitCode and ExitedAt are valid once Done is closed.
	ExitCode() int
	ExitedAt() time.Time
}

// Report is the outcome of watching one process.
type Report struct {
	State    State
	Elapsed  time.Duration
	PeakRSS  uint64
	ExitCode int
}

// Monitor enforces Limits over a sequence of samples.
// A Monitor watches a single process and must not be reused.
type Monitor struct {
	limits   Limits
	interval time.Duration
	now      func() time.Time

	peak    uint64
	elapsed time.Duration
}

func NewMonitor(limits Limits, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		limits:   limits,
		interval: interval,
		now:      time.Now,
	}
}

// DefaultPollInterval bounds how far a run can overshoot its limits.
const DefaultPollInterval = 5 * time.Millisecond

// Step folds one sample into the monitor and returns the resulting state.
// Time is checked before memory, memory before exit status.
func (m *Monitor) Step(s Sample) State {
	if s.RSS > m.peak {
		m.peak = s.RSS
	}
	if s.Elapsed > m.elapsed {
		m.elapsed = s.Elapsed
	}

	if s.Elapsed > m.limits.Time {
		return TimedOut
	}
	if s.RSS > m.limits.Memory {
		return MemExceeded
	}
	if s.Exited {
		if s.ExitCode != 0 {
			return ExitedError
		}
		return ExitedOk
	}
	return Running
}

// Peak is the largest resident set size seen so far.
func (m *Monitor) Peak() uint64 {
	return m.peak
}

// Watch polls t until it reaches a terminal state. The child is always reaped
// before Watch returns, including when ctx is cancelled.
func (m *Monitor) Watch(ctx context.Context, t Target, start time.Time) (Report, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Done():
			return m.exited(t, start, 0), nil
		default:
		}

		rss, err := t.RSS()
		if err != nil {
			rss = 0
		}
		// an exit between the two checks is classified by its own exit time
		select {
		case <-t.Done():
			return m.exited(t, start, rss), nil
		default:
		}

		state := m.Step(Sample{Elapsed: m.now().Sub(start), RSS: rss})
		if state.Terminal() {
			return m.kill(t, state), nil
		}

		select {
		case <-ctx.Done():
			m.kill(t, Running)
			return Report{}, ctx.Err()
		case <-t.Done():
		case <-ticker.C:
		}
	}
}

func (m *Monitor) exited(t Target, start time.Time, rss uint64) Report {
	code := t.ExitCode()
	state := m.Step(Sample{
		Elapsed:  t.ExitedAt().Sub(start),
		RSS:      rss,
		Exited:   true,
		ExitCode: code,
	})
	return Report{
		State:    state,
		Elapsed:  m.elapsed,
		PeakRSS:  m.peak,
		ExitCode: code,
	}
}

func (m *Monitor) kill(t Target, state State) Report {
	_ = t.Kill()
	<-t.Done()
	return Report{
		State:    state,
		Elapsed:  m.elapsed,
		PeakRSS:  m.peak,
		ExitCode: t.ExitCode(),
	}
}
