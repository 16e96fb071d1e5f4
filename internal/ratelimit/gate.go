// Package ratelimit provides the cooldown gate shared by every code path that
// talks to the rate-limited generation API.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by upstream clients when a 429-class response is
// detected. Callers check it with errors.Is and set the gate.
var ErrRateLimited = errors.New("upstream rate limited")

// PacedError reports a call attempted before the minimum spacing between AI
// calls elapsed. It is distinct from ErrRateLimited so callers pace the one
// call instead of starting a long cooldown.
type PacedError struct {
	Wait time.Duration
}

func (e *PacedError) Error() string {
	return fmt.Sprintf("call paced, retry in %s", e.Wait)
}

// Gate is a timestamp guard: after an upstream rate-limit error, calls are
// blocked until the cooldown elapses. One Gate instance is shared by the
// dictionary cascade and the AI generators; tests construct their own with a
// fake clock.
type Gate struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewGate returns an open gate using the real clock.
func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// NewGateAt returns a gate using the given clock, for tests.
func NewGateAt(now func() time.Time) *Gate {
	return &Gate{now: now}
}

// Block closes the gate for d from now. A shorter block never shortens an
// existing longer one.
func (g *Gate) Block(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until := g.now().Add(d); until.After(g.until) {
		g.until = until
	}
}

// Remaining returns how long until the gate opens; zero when it is open.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.until.Sub(g.now()); d > 0 {
		return d
	}
	return 0
}

// Allow reports whether a call may proceed.
func (g *Gate) Allow() bool {
	return g.Remaining() == 0
}
