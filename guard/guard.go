// guard/guard.go
// Package guard enforces at-most-one-in-flight submission semantics for a
// single service session. It combines three independent admission checks:
// an exclusive in-flight flag (concurrent double-submit), a replay set of
// already-admitted request ids (re-sent identical request), and a cooldown
// window after the last admitted start (rapid successive distinct submits).
package guard

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum wall-clock gap between two admitted
// submissions. The value is inherited behavior; override it via New.
const DefaultCooldown = 3 * time.Second

// Guard is the submission admission gate. Construct it once per session and
// pass it to whatever drives submissions; it is safe for concurrent use.
//
// The replay set is intentionally never pruned: request ids are generated
// fresh per attempt and the guard lives for one session, so growth is bounded
// by the number of attempts until Reset.
type Guard struct {
	mu        sync.Mutex
	inFlight  bool
	holder    string // request id of the admission currently in flight
	seen      map[string]struct{}
	lastStart time.Time
	cooldown  time.Duration

	now func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithCooldown overrides the cooldown window. A zero or negative duration
// disables the cooldown check.
func WithCooldown(d time.Duration) Option {
	return func(g *Guard) { g.cooldown = d }
}

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a Guard with the default 3 second cooldown.
func New(opts ...Option) *Guard {
	g := &Guard{
		seen:     make(map[string]struct{}),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanSubmit reports whether a submission with the given request id would be
// admitted right now. It has no side effects and the answer can be stale by
// the time the caller acts on it; use TryAcquire to check and admit in one
// step.
func (g *Guard) CanSubmit(requestID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admissible(requestID)
}

// TryAcquire performs the admission check and, if it passes, marks the
// submission as started: the in-flight flag is set, the request id is
// recorded in the replay set, and the cooldown clock restarts. The check and
// the state change happen under one lock so two concurrent callers can never
// both be admitted.
func (g *Guard) TryAcquire(requestID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.admissible(requestID) {
		return false
	}

	g.inFlight = true
	g.holder = requestID
	g.seen[requestID] = struct{}{}
	g.lastStart = g.now()
	return true
}

// admissible applies the three checks. Caller must hold g.mu.
func (g *Guard) admissible(requestID string) bool {
	if g.inFlight {
		return false
	}
	if _, dup := g.seen[requestID]; dup {
		return false
	}
	if g.cooldown > 0 && !g.lastStart.IsZero() && g.now().Sub(g.lastStart) < g.cooldown {
		return false
	}
	return true
}

// Release clears the in-flight flag, but only for the id that currently holds
// it: releasing an id that was never acquired, or one whose admission already
// finished, is a no-op. The request id stays in the replay set, so an id that
// has been through TryAcquire can never be admitted again until Reset.
func (g *Guard) Release(requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.inFlight || g.holder != requestID {
		return
	}
	g.inFlight = false
	g.holder = ""
}

// Reset returns the guard to its initial state: nothing in flight, empty
// replay set, no cooldown pending. Used when a session (re)starts and on a
// user-triggered "submit another".
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight = false
	g.holder = ""
	g.seen = make(map[string]struct{})
	g.lastStart = time.Time{}
}

// InFlight reports whether a submission is currently outstanding.
func (g *Guard) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}
