package guard

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestInFlightOnlyBetweenAcquireAndRelease(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	if g.InFlight() {
		t.Fatal("new guard should not be in flight")
	}
	if !g.TryAcquire("a") {
		t.Fatal("first acquire should succeed")
	}
	if !g.InFlight() {
		t.Fatal("guard should be in flight after acquire")
	}
	g.Release("a")
	if g.InFlight() {
		t.Fatal("guard should not be in flight after release")
	}
}

func TestSecondAcquireWhileInFlightRejected(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	if !g.TryAcquire("a") {
		t.Fatal("first acquire should succeed")
	}
	if g.TryAcquire("b") {
		t.Fatal("acquire while in flight should be rejected")
	}
	if g.CanSubmit("b") {
		t.Fatal("CanSubmit should be false while in flight")
	}
}

func TestReplayRejection(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	if !g.TryAcquire("a") {
		t.Fatal("first acquire should succeed")
	}
	g.Release("a")
	clk.Advance(time.Minute)

	if g.CanSubmit("a") {
		t.Fatal("an admitted id must never pass CanSubmit again")
	}
	if g.TryAcquire("a") {
		t.Fatal("an admitted id must never be re-admitted")
	}
}

func TestCooldownWindow(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	if !g.TryAcquire("a") {
		t.Fatal("first acquire should succeed")
	}
	g.Release("a")

	clk.Advance(2 * time.Second)
	if g.CanSubmit("b") {
		t.Fatal("distinct id inside the cooldown window should be rejected")
	}
	if g.TryAcquire("b") {
		t.Fatal("TryAcquire inside the cooldown window should be rejected")
	}

	clk.Advance(1100 * time.Millisecond)
	if !g.TryAcquire("b") {
		t.Fatal("acquire after the cooldown window should succeed")
	}
}

func TestCustomCooldown(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now), WithCooldown(10*time.Second))

	g.TryAcquire("a")
	g.Release("a")

	clk.Advance(5 * time.Second)
	if g.CanSubmit("b") {
		t.Fatal("custom cooldown not honored")
	}
	clk.Advance(6 * time.Second)
	if !g.CanSubmit("b") {
		t.Fatal("cooldown should have elapsed")
	}
}

func TestZeroCooldownDisablesWindow(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now), WithCooldown(0))

	g.TryAcquire("a")
	g.Release("a")
	if !g.TryAcquire("b") {
		t.Fatal("zero cooldown should admit immediately after release")
	}
}

func TestResetRestoresAdmissibility(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	g.TryAcquire("a")
	g.Reset()

	if !g.CanSubmit("a") {
		t.Fatal("after reset even a previously seen id should be admissible")
	}
	if !g.TryAcquire("fresh") {
		t.Fatal("after reset a fresh id should be admitted with no cooldown")
	}
}

func TestReleaseUnknownIDIsNoOp(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	g.TryAcquire("a")
	g.Release("never-acquired")
	if !g.InFlight() {
		t.Fatal("releasing an unknown id must not clear the in-flight flag")
	}
}

func TestStaleReleaseDoesNotClearLaterHolder(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now), WithCooldown(0))

	g.TryAcquire("a")
	g.Release("a")

	if !g.TryAcquire("b") {
		t.Fatal("fresh id should be admitted after release")
	}
	// Double-release of an already-finished id must not free the guard out
	// from under the current holder.
	g.Release("a")
	if !g.InFlight() {
		t.Fatal("stale release must not clear the in-flight flag held by another id")
	}
	g.Release("b")
	if g.InFlight() {
		t.Fatal("releasing the current holder should clear the in-flight flag")
	}
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	clk := newFakeClock()
	g := New(WithClock(clk.Now))

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if g.TryAcquire("id-" + string(rune('a'+i))) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("admitted = %d, want exactly 1", admitted)
	}
}

func TestNewRequestIDShape(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	if a == b {
		t.Fatal("two request ids should differ")
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("request id %q missing time/random separator", a)
	}
}
