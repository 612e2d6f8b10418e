package domain

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Swind/corert/core"
)

// Domain is one OS-thread-backed worker (§4.2's C3): a dedicated
// goroutine running a tight scheduler loop over its own RunQueue, plus a
// cross-domain inbox other domains and the dispatcher use to hand it
// work or wake it up. Everything inside the loop itself is
// single-threaded by construction (one goroutine, `go func(){ loop }()`
// pinned for the domain's lifetime); the only thread-safe surface is
// Post (which also calls the hook's Interrupt) and whatever the promise/registry layer already
// guards with its own locks.
type Domain struct {
	id   int
	pool *Pool

	rq   *RunQueue
	hook core.EventsHook

	mu         sync.Mutex
	crossInbox []runnable
	wakeCh     chan struct{}

	contexts     map[core.PromiseID]*Context
	liveSyscalls map[core.PromiseID]*core.Promise

	stats core.DomainStats

	stop chan struct{}
	done chan struct{}
}

func newDomain(id int, pool *Pool, hook core.EventsHook) *Domain {
	return &Domain{
		id:           id,
		pool:         pool,
		rq:           NewRunQueue(pool.rng),
		hook:         hook,
		wakeCh:       make(chan struct{}, 1),
		contexts:     make(map[core.PromiseID]*Context),
		liveSyscalls: make(map[core.PromiseID]*core.Promise),
		stats:        core.DomainStats{DomainID: id},
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Post enqueues r for this domain and wakes it if it is currently
// blocked in EventsHook.Select or idling on wakeCh. It is the one
// thread-safe entry point into a domain from any other goroutine: the
// dispatcher uses it to hand off a freshly routed `call`, a resolving
// promise's waiter callback uses it to schedule the resumption of
// whichever domain is awaiting it, and Cancel uses it to make sure a
// cancelled domain gets a turn to notice.
func (d *Domain) Post(r runnable) {
	d.mu.Lock()
	d.crossInbox = append(d.crossInbox, r)
	d.mu.Unlock()
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
	d.hook.Interrupt()
}

func (d *Domain) drainInbox() {
	d.mu.Lock()
	if len(d.crossInbox) == 0 {
		d.mu.Unlock()
		return
	}
	items := d.crossInbox
	d.crossInbox = nil
	d.mu.Unlock()
	for _, r := range items {
		d.rq.Push(r)
	}
}

func (d *Domain) trackSyscall(p *core.Promise) {
	d.mu.Lock()
	d.liveSyscalls[p.ID()] = p
	d.mu.Unlock()
}

func (d *Domain) untrackSyscall(id core.PromiseID) {
	d.mu.Lock()
	delete(d.liveSyscalls, id)
	d.mu.Unlock()
}

// clearCancelledSyscalls forces any locally tracked, still-Pending
// syscall promise whose cancellation was requested to Cancelled. This is
// the scheduler loop's clean pass (§4.5): a syscall promise otherwise
// only leaves Pending when its owning EventsHook decides to resolve it,
// so cancellation needs this separate path to make progress at all.
func (d *Domain) clearCancelledSyscalls() {
	d.mu.Lock()
	var toClear []*core.Promise
	for id, p := range d.liveSyscalls {
		if p.CancelRequested() && p.IsPending() {
			toClear = append(toClear, p)
			delete(d.liveSyscalls, id)
		}
	}
	d.mu.Unlock()
	for _, p := range toClear {
		w, out, ok := p.MarkCancelled()
		if ok {
			d.pool.cfg.Metrics.RecordCancellation(d.id)
			if w != nil {
				w(out)
			}
		}
	}
}

// run is the scheduler loop body (§4.2's four-step description):
//
//  1. drain the cross-domain inbox (dispatcher results, cross-domain
//     wakeups, and cancellation pokes) into the run queue;
//  2. observe cancellation on locally-owned syscall promises;
//  3. if the run queue has work, pick one entry at random and run it to
//     its next suspension point or completion;
//  4. otherwise, if this domain still owns Pending promises, block in
//     EventsHook.Select for external completions; if that yields nothing
//     (or it owns none), idle on wakeCh for up to 50ms. The loop only
//     exits once the pool closes stop.
func (d *Domain) run() {
	d.pool.cfg.Logger.Debug("domain starting", core.F("domain", d.id))
	defer func() {
		d.pool.cfg.Logger.Debug("domain stopped", core.F("domain", d.id))
		close(d.done)
	}()
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.drainInbox()
		d.clearCancelledSyscalls()

		if r, ok := d.rq.Next(); ok {
			d.dispatch(r)
			continue
		}

		if d.hasOwnedPending() {
			entries := d.hook.Select()
			if len(entries) > 0 {
				for _, e := range entries {
					d.resolveSyscall(e)
				}
				continue
			}
		}

		// Nothing ready locally. A domain with zero owned promises right
		// now may still receive a `call` submission at any moment before
		// the pool shuts down, so it idles rather than exiting.
		quiescent := !d.hasOwnedPending()
		if quiescent {
			d.pool.cfg.Logger.Debug("domain quiescent", core.F("domain", d.id))
		}
		select {
		case <-d.stop:
			return
		case <-d.wakeCh:
		case <-time.After(50 * time.Millisecond):
		}
		if quiescent {
			d.pool.cfg.Logger.Debug("domain leaving quiescence", core.F("domain", d.id))
		}
	}
}

func (d *Domain) hasOwnedPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.liveSyscalls) > 0 {
		return true
	}
	return len(d.contexts) > 0
}

func (d *Domain) resolveSyscall(e core.RunnableEntry) {
	value, err := e.OnResolve()
	var w core.WaiterFunc
	var out core.Outcome
	var ok bool
	if err != nil {
		w, out, ok = e.Promise.Fail(err)
	} else {
		w, out, ok = e.Promise.Resolve(value)
	}
	d.untrackSyscall(e.Promise.ID())
	if ok && w != nil {
		w(out)
	}
}

func (d *Domain) dispatch(r runnable) {
	p := r.promise
	ctx, resuming := d.contexts[p.ID()]
	if !resuming {
		if p.CancelRequested() {
			if _, ok := p.MarkStarted(); ok {
				w, out, resolved := p.MarkCancelled()
				if resolved {
					d.pool.cfg.Logger.Debug("cancellation delivered", core.F("domain", d.id), core.F("promise", p.ID()))
					d.pool.cfg.Metrics.RecordCancellation(d.id)
					if w != nil {
						w(out)
					}
				}
			}
			return
		}
		fn, ok := p.MarkStarted()
		if !ok {
			return
		}
		ctx = newContext(d, p)
		d.contexts[p.ID()] = ctx
		go d.runBody(ctx, fn)
		<-ctx.yielded
	} else {
		ctx.resumeCh <- struct{}{}
		<-ctx.yielded
	}

	if ctx.done {
		delete(d.contexts, p.ID())
		d.finalize(ctx)
	}
}

func (d *Domain) runBody(ctx *Context, fn core.ExecFunc) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.pool.cfg.PanicHandler.HandlePanic(d.id, ctx.promise.ID(), r, debug.Stack())
			d.pool.cfg.Metrics.RecordTaskPanic(d.id, r)
			ctx.result, ctx.err = nil, core.NewUserFailure(ctx.promise.ID(), errPanic(r))
		}
		d.pool.cfg.Metrics.RecordTaskDuration(d.id, time.Since(start))
		ctx.done = true
		ctx.yielded <- struct{}{}
	}()
	ctx.result, ctx.err = fn(ctx)
}

// finalize implements invariant 3: a promise cannot finish Resolved (and,
// by the same discipline, Failed) while any child is Pending. It first
// force-cancels and drains any leftover children, then commits the
// terminal state the closure actually asked for (or Cancelled, if
// cancellation was requested for this promise itself).
//
// Leftover Pending children at this point were never awaited by the
// closure — an AwaitFirst loser, a WithTimeout race's cancelled side, or
// a plain fire-and-forget spawn the closure walked away from. Their
// eventual outcome (typically Cancelled) is not folded into ctx.err:
// per §4.5, cancelling a child must not affect the parent, so this only
// drains them to a terminal state to satisfy invariant 3 and discards
// what they resolved to. A child's outcome only ever reaches ctx.err
// through the closure's own Await/AwaitAll/AwaitFirst call.
func (d *Domain) finalize(ctx *Context) {
	p := ctx.promise
	forced := p.CancelRequested()

	pending := p.Children()
	for _, c := range pending {
		if c.IsPending() {
			d.pool.cfg.Logger.Debug("cancellation delivered", core.F("domain", d.id), core.F("promise", c.ID()))
			core.RequestCancelSubtree(c)
			d.pool.NotifyCancel(c)
		}
	}
	for _, c := range pending {
		ctx.rawSuspend(c)
	}

	if forced {
		d.pool.cfg.Logger.Debug("cancellation delivered", core.F("domain", d.id), core.F("promise", p.ID()))
		w, out, ok := p.MarkCancelled()
		d.commit(p, w, out, ok)
		return
	}
	if ctx.err != nil {
		w, out, ok := p.Fail(ctx.err)
		d.commit(p, w, out, ok)
		return
	}
	w, out, ok := p.Resolve(ctx.result)
	d.commit(p, w, out, ok)
}

func (d *Domain) commit(p *core.Promise, w core.WaiterFunc, out core.Outcome, ok bool) {
	if !ok {
		return
	}
	if p.State() == core.Cancelled {
		d.pool.cfg.Metrics.RecordCancellation(d.id)
	}
	if w != nil {
		w(out)
	}
}

type panicError struct{ v any }

func (e panicError) Error() string { return "panic: " + errString(e.v) }

func errPanic(v any) error { return panicError{v: v} }

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
