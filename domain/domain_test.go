package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/Swind/corert/core"
)

func testConfig(domains int) *core.Config {
	cfg := &core.Config{Domains: domains, Seed: 1}
	cfg.ApplyDefaults()
	return cfg
}

// TestPool_RunReturnsRootResult exercises the whole scheduler loop
// end-to-end for the simplest possible body: no children, no
// suspension.
func TestPool_RunReturnsRootResult(t *testing.T) {
	pool := NewPool(testConfig(2))
	result, err := pool.Run(func(env any) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

// TestPool_CallCrossesDomains verifies cross-domain exclusion (§8): a
// call task never lands on the caller's own domain.
func TestPool_CallCrossesDomains(t *testing.T) {
	pool := NewPool(testConfig(3))
	callerDomain, calleeDomain := -1, -1
	_, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*Context)
		callerDomain = ctx.DomainID()
		p, err := ctx.Call(func(inner any) (any, error) {
			calleeDomain = inner.(*Context).DomainID()
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		return ctx.Await(p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calleeDomain == callerDomain {
		t.Fatalf("call task ran on the caller's own domain %d", callerDomain)
	}
}

// TestPool_AwaitAllOrdersResults verifies the parallel-map scenario
// (§8.2): results come back in submission order regardless of
// completion order.
func TestPool_AwaitAllOrdersResults(t *testing.T) {
	pool := NewPool(testConfig(4))
	result, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*Context)
		var promises []*core.Promise
		for i := 0; i < 5; i++ {
			i := i
			p, err := ctx.Call(func(any) (any, error) { return i * i, nil })
			if err != nil {
				p = ctx.CallCC(func(any) (any, error) { return i * i, nil })
			}
			promises = append(promises, p)
		}
		return ctx.AwaitAll(promises)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := result.([]any)
	if len(values) != 5 {
		t.Fatalf("expected 5 results, got %d", len(values))
	}
	for i, v := range values {
		if v != i*i {
			t.Fatalf("expected in-order result %d at index %d, got %v", i*i, i, v)
		}
	}
}

// TestPool_CancelInterruptsPending verifies cancellation totality
// (§8): cancelling a pending promise drives it to Cancelled.
func TestPool_CancelInterruptsPending(t *testing.T) {
	pool := NewPool(testConfig(2))
	var cancelErr error
	_, err := pool.RunWithActivePool(func(env any) (any, error) {
		ctx := env.(*Context)
		blocker := ctx.Make(func() (any, error) { return nil, nil })

		p, err := ctx.Call(func(any) (any, error) {
			return nil, nil
		})
		if err != nil {
			p = ctx.CallCC(func(any) (any, error) { return nil, nil })
		}
		if _, err := ctx.Await(p); err != nil {
			return nil, err
		}

		Cancel(blocker)
		_, cancelErr = ctx.Suspend(blocker)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(cancelErr, core.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", cancelErr)
	}
}

// TestPool_ConcurrentSleepersOverlap is the "concurrent sleepers"
// end-to-end scenario (§8.1) using a stub hook that fakes a bounded
// sleep without depending on the ioevents package (kept dependency-free
// at the domain package level).
func TestPool_ConcurrentSleepersOverlap(t *testing.T) {
	hookFactory := func(domainID int) core.EventsHook { return newFakeSleepHook() }
	cfg := testConfig(3)
	cfg.EventsHook = hookFactory
	pool := NewPool(cfg)

	start := time.Now()
	_, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*Context)
		a := ctx.CallCC(func(inner any) (any, error) {
			return sleepViaHook(inner.(*Context), 200*time.Millisecond)
		})
		b := ctx.CallCC(func(inner any) (any, error) {
			return sleepViaHook(inner.(*Context), 200*time.Millisecond)
		})
		_, err := ctx.AwaitAll([]*core.Promise{a, b})
		return nil, err
	})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed >= 350*time.Millisecond {
		t.Fatalf("two 200ms sleeps should overlap, took %v", elapsed)
	}
}

// TestPool_CancelDuringUnrelatedAwaitDeliversRealOutcome covers the
// spurious-wakeup case of cancellation: a task cancelled while
// suspended awaiting a still-pending, unrelated promise must still
// receive that promise's real eventual outcome. The cancellation
// notification and the awaited promise's resolution both arrive on the
// same channel; a wakeup that arrives before the awaited promise
// actually resolves must not be mistaken for resolution.
func TestPool_CancelDuringUnrelatedAwaitDeliversRealOutcome(t *testing.T) {
	hookFactory := func(domainID int) core.EventsHook { return newFakeSleepHook() }
	cfg := testConfig(1)
	cfg.EventsHook = hookFactory
	pool := NewPool(cfg)

	var awaitedValue any
	var awaitedErr error
	_, err := pool.RunWithActivePool(func(env any) (any, error) {
		ctx := env.(*Context)
		h := ctx.Hook().(*fakeSleepHook)

		unrelated := ctx.Make(func() (any, error) { return "real-result", nil })
		h.registerSleepWithResult(unrelated, 150*time.Millisecond)

		task := ctx.CallCC(func(inner any) (any, error) {
			innerCtx := inner.(*Context)
			awaitedValue, awaitedErr = innerCtx.Await(unrelated)
			return awaitedValue, awaitedErr
		})

		// Give the scheduler room to start task and let it park inside
		// Await(unrelated) before cancelling it.
		delay := ctx.Make(func() (any, error) { return nil, nil })
		h.registerSleep(delay, 20*time.Millisecond)
		if _, err := ctx.Suspend(delay); err != nil {
			return nil, err
		}

		Cancel(task)
		_, _ = ctx.Await(task)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awaitedErr != nil {
		t.Fatalf("unexpected error awaiting unrelated promise: %v", awaitedErr)
	}
	if awaitedValue != "real-result" {
		t.Fatalf("expected the unrelated promise's real outcome, got %v", awaitedValue)
	}
}

func sleepViaHook(ctx *Context, d time.Duration) (any, error) {
	p := ctx.Make(func() (any, error) { return nil, nil })
	h := ctx.Hook().(*fakeSleepHook)
	h.registerSleep(p, d)
	return ctx.Suspend(p)
}

// fakeSleepHook is a minimal core.EventsHook standin: it lets tests
// exercise sleep-like suspension without importing ioevents.
type fakeSleepHook struct {
	c chan core.RunnableEntry
}

func newFakeSleepHook() *fakeSleepHook {
	return &fakeSleepHook{c: make(chan core.RunnableEntry, 16)}
}

func (h *fakeSleepHook) registerSleep(p *core.Promise, d time.Duration) {
	go func() {
		time.Sleep(d)
		h.c <- core.RunnableEntry{Promise: p, OnResolve: func() (any, error) { return nil, nil }}
	}()
}

// registerSleepWithResult behaves like registerSleep but resolves p
// through its own stored onResolve closure once d elapses, so the
// eventual value is distinguishable from the zero value a stale wakeup
// would otherwise produce.
func (h *fakeSleepHook) registerSleepWithResult(p *core.Promise, d time.Duration) {
	go func() {
		time.Sleep(d)
		h.c <- core.RunnableEntry{Promise: p, OnResolve: p.OnResolve()}
	}()
}

func (h *fakeSleepHook) Select() []core.RunnableEntry {
	select {
	case e := <-h.c:
		return []core.RunnableEntry{e}
	case <-time.After(25 * time.Millisecond):
		return nil
	}
}

func (h *fakeSleepHook) Interrupt() {}
