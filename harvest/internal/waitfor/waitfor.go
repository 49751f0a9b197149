// CLAUDE:SUMMARY Bounded polling state machine (Waiting, Stable, TimedOut) for selector presence and row-count stability.
// Package waitfor expresses the "wait until present" and "wait until the
// count stops changing" patterns as a small state machine with an explicit
// interval and attempt bound. It never blocks past MaxAttempts polls.
package waitfor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the machine state after a poll.
type State int

const (
	Waiting  State = iota // condition not reached yet
	Stable                // condition reached
	TimedOut              // attempt bound exhausted
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Stable:
		return "stable"
	case TimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrTimedOut is returned by Present when the element never appeared.
// Callers treat it as recoverable.
var ErrTimedOut = errors.New("waitfor: timed out")

// Poller configures a bounded poll loop.
type Poller struct {
	// Interval between polls. Default: 300ms.
	Interval time.Duration
	// MaxAttempts bounds the number of polls. Default: 30.
	MaxAttempts int
	// Agreements is how many consecutive equal, non-zero readings after
	// the first are required to call a count stable. Default: 1 (two
	// consecutive polls agree).
	Agreements int

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func (p *Poller) defaults() {
	if p.Interval <= 0 {
		p.Interval = 300 * time.Millisecond
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 30
	}
	if p.Agreements <= 0 {
		p.Agreements = 1
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
}

// Outcome is the final state of a poll loop.
type Outcome struct {
	State    State
	Count    int // last observed count (Stable) or 0/1 for presence
	Attempts int
	LastErr  error // last probe error, if any
}

// CountProbe returns the current number of matching elements.
type CountProbe func(ctx context.Context) (int, error)

// PresenceProbe reports whether the awaited element exists.
type PresenceProbe func(ctx context.Context) (bool, error)

// countMachine tracks consecutive agreeing readings.
type countMachine struct {
	need   int
	last   int
	agreed int
	state  State
}

func newCountMachine(need int) *countMachine {
	return &countMachine{need: need, last: -1, state: Waiting}
}

// observe feeds one reading into the machine and returns the new state.
// A failed probe (ok=false) resets the agreement run.
func (m *countMachine) observe(count int, ok bool) State {
	if !ok {
		m.agreed = 0
		m.last = -1
		return m.state
	}
	if count > 0 && count == m.last {
		m.agreed++
		if m.agreed >= m.need {
			m.state = Stable
		}
	} else {
		m.agreed = 0
	}
	m.last = count
	return m.state
}

// UntilStable polls probe until the count is stable or the attempt bound
// is reached. TimedOut is not an error: the outcome carries the last
// observed count so the caller can proceed best-effort. Only context
// cancellation yields an error.
func (p Poller) UntilStable(ctx context.Context, probe CountProbe) (Outcome, error) {
	p.defaults()
	m := newCountMachine(p.Agreements)
	out := Outcome{State: Waiting}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		count, err := probe(ctx)
		out.Attempts = attempt
		if err != nil {
			out.LastErr = err
		} else {
			out.Count = count
		}
		if m.observe(count, err == nil) == Stable {
			out.State = Stable
			return out, nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			return out, err
		}
	}
	out.State = TimedOut
	return out, nil
}

// Present polls probe until it reports true. It returns ErrTimedOut (with
// the outcome) when the attempt bound is exhausted.
func (p Poller) Present(ctx context.Context, probe PresenceProbe) (Outcome, error) {
	p.defaults()
	out := Outcome{State: Waiting}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		found, err := probe(ctx)
		out.Attempts = attempt
		if err != nil {
			out.LastErr = err
		}
		if err == nil && found {
			out.State = Stable
			out.Count = 1
			return out, nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			return out, err
		}
	}
	out.State = TimedOut
	return out, ErrTimedOut
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
