package domain

import (
	"sync"

	"github.com/Swind/corert/core"
)

// Context is the environment a task closure runs against. It is the
// concrete type behind the `any` env parameter of core.ExecFunc, boxed
// that way so core never imports domain. A Context is created once, when
// its promise's closure first runs, and lives until that closure
// finally returns; every suspension point (Await, Suspend, Yield) reuses
// the same yielded/resumeCh pair to hand control back and forth with the
// owning Domain's scheduler loop.
type Context struct {
	d       *Domain
	promise *core.Promise

	yielded  chan struct{} // task goroutine -> loop: "I've suspended or finished"
	resumeCh chan struct{} // loop -> task goroutine: "proceed"

	done   bool
	result any
	err    error
}

// InertContext builds a Context bound to p but with no owning domain. It
// backs Task below: EventsHook implementations that want to describe a
// completed I/O result with a *Context-shaped closure, even though that
// closure runs synchronously outside any scheduler loop and therefore
// cannot suspend. Calling Suspend, Await, Call, CallCC, Make, or Yield
// on the result panics.
func InertContext(p *core.Promise) *Context {
	return &Context{promise: p}
}

// Task builds a RunnableEntry that resolves p by running closure once,
// synchronously, against an InertContext (§6: "package (syscall
// promise, closure) as a runnable entry for the events hook"). It is
// the shape every concrete EventsHook in this tree uses to hand a
// finished result back to the scheduler, whether the result was
// computed synchronously (a Select call that decided immediately) or,
// as in ioevents.Hook, on a throwaway goroutine well before Task itself
// runs.
func Task(p *core.Promise, closure func(*Context) (any, error)) core.RunnableEntry {
	inert := InertContext(p)
	return core.RunnableEntry{
		Promise:   p,
		OnResolve: func() (any, error) { return closure(inert) },
	}
}

func newContext(d *Domain, p *core.Promise) *Context {
	return &Context{
		d:        d,
		promise:  p,
		yielded:  make(chan struct{}, 1),
		resumeCh: make(chan struct{}, 1),
	}
}

// Promise returns the promise backing the running task, e.g. so a task
// can pass its own id to something it hands off to an EventsHook.
func (ctx *Context) Promise() *core.Promise { return ctx.promise }

// Hook returns the owning domain's EventsHook instance, so external I/O
// packages (ioevents) can register asynchronous work against the
// correct domain-local reactor. Nil for an InertContext.
func (ctx *Context) Hook() core.EventsHook {
	if ctx.d == nil {
		return nil
	}
	return ctx.d.hook
}

// DomainID returns the id of the domain currently running this task, or
// -1 for an InertContext.
func (ctx *Context) DomainID() int {
	if ctx.d == nil {
		return -1
	}
	return ctx.d.id
}

// Cancelled reports whether cancellation has been requested for the
// running task. Cooperative closures should check this at points they
// control and return promptly; the scheduler still forces the promise to
// Cancelled once the closure returns, regardless of whether it checked.
func (ctx *Context) Cancelled() bool { return ctx.promise.CancelRequested() }

// rawSuspend parks the calling goroutine until p leaves Pending, without
// consuming p (Await layers consumption on top). It is also the
// mechanism domain.go uses internally to drain a parent's children
// before finishing (§ invariant 3), where the drained children are not
// necessarily owned by this domain.
//
// resumeCh can be signalled for reasons that have nothing to do with p:
// Post is also how a cancellation notification reaches this task's own
// promise (Pool.NotifyCancel), and dispatch cannot tell those wakeups
// apart from a genuine "p resolved" wakeup before handing control back
// here. So a single resumeCh receive is not proof that p left Pending;
// this loops, treating any wakeup that arrives with p still Pending as
// spurious and handing control straight back to the domain loop, until
// the registered waiter above actually fires.
func (ctx *Context) rawSuspend(p *core.Promise) core.Outcome {
	if ctx.d == nil {
		panic("corert: cannot suspend on an inert Context")
	}
	imm, already := p.SetWaiter(func(core.Outcome) {
		ctx.d.Post(runnable{promise: ctx.promise})
	})
	if already {
		return *imm
	}
	for {
		ctx.yielded <- struct{}{}
		<-ctx.resumeCh
		if !p.IsPending() {
			return p.Snapshot()
		}
	}
}

// Suspend parks the current task until p leaves Pending (§4.3's
// suspend). Syscall promises may only be suspended on from their owner
// domain, since the events source that will eventually resolve them is
// domain-local; Task promises may be suspended on from any domain (this
// is exactly what a parallel `call` result await does).
func (ctx *Context) Suspend(p *core.Promise) (any, error) {
	if p.Kind() == core.KindSyscallPromise && p.OwnerDomain() != ctx.d.id {
		return nil, core.NewForeignPromise(p.ID())
	}
	out := ctx.rawSuspend(p)
	return out.Value, out.Err
}

// Await suspends until p resolves and consumes it, failing with
// ErrAlreadyConsumed on a second call (invariant 2).
func (ctx *Context) Await(p *core.Promise) (any, error) {
	if p.Kind() == core.KindSyscallPromise && p.OwnerDomain() != ctx.d.id {
		return nil, core.NewForeignPromise(p.ID())
	}
	out := ctx.rawSuspend(p)
	if err := p.MarkConsumed(); err != nil {
		return nil, err
	}
	return out.Value, out.Err
}

// AwaitAll awaits every promise in ps in order, aggregating any failures
// via core.AggregateOutcomeErrors. It always awaits all of them, even
// after an early failure, so no promise is left dangling with an
// unconsumed outcome.
func (ctx *Context) AwaitAll(ps []*core.Promise) ([]any, error) {
	if len(ps) == 0 {
		return nil, core.ErrEmptyAwait
	}
	results := make([]any, len(ps))
	outcomes := make([]core.Outcome, len(ps))
	for i, p := range ps {
		v, err := ctx.Await(p)
		results[i] = v
		outcomes[i] = core.Outcome{Value: v, Err: err}
	}
	return results, core.AggregateOutcomeErrors(outcomes)
}

// AwaitFirst races ps, returning the outcome of whichever settles first
// and cancelling the rest. The winner is consumed; losers are not
// (they're cancelled and detached instead).
//
// Correctness note: at most one Post is ever issued for this context's
// resume on behalf of one of ps, guaranteed by the atomic CAS on
// winnerIdx below — every waiter callback that loses the race is a
// strict no-op. That does NOT mean every resumeCh wakeup this call
// observes came from one of ps, though: Post is also how a cancellation
// notification for ctx.promise itself arrives (Pool.NotifyCancel), and
// that races freely with the candidates. So this loops on resumeCh,
// same as rawSuspend, and only stops once winnerIdx actually holds a
// real winner.
func (ctx *Context) AwaitFirst(ps []*core.Promise) (any, error) {
	if len(ps) == 0 {
		return nil, core.ErrEmptyAwait
	}
	var winnerIdx atomicInt
	winnerIdx.Store(-1)

	for i, p := range ps {
		i := i
		imm, isImmediate := p.SetWaiter(func(core.Outcome) {
			if winnerIdx.CAS(-1, i) {
				ctx.d.Post(runnable{promise: ctx.promise})
			}
		})
		if isImmediate {
			winnerIdx.CAS(-1, i)
			_ = imm
		}
	}

	for winnerIdx.Load() == -1 {
		ctx.yielded <- struct{}{}
		<-ctx.resumeCh
	}

	idx := winnerIdx.Load()
	winner := ps[idx]
	for i, p := range ps {
		if i == idx {
			continue
		}
		p.ClearWaiter()
		core.RequestCancelSubtree(p)
		ctx.d.pool.NotifyCancel(p)
	}

	out := winner.Snapshot()
	if err := winner.MarkConsumed(); err != nil {
		return nil, err
	}
	return out.Value, out.Err
}

// Yield voluntarily gives up the domain, re-queuing the current task for
// random reselection (§4.3's yield). It carries no promise of any kind;
// it exists purely as a cooperative scheduling point.
func (ctx *Context) Yield() {
	ctx.d.Post(runnable{promise: ctx.promise})
	ctx.yielded <- struct{}{}
	<-ctx.resumeCh
}

// CallCC schedules fn as a same-domain concurrent task (§4.1's call_cc):
// the new promise is owned by this domain and only ever runs
// interleaved with other tasks already here.
func (ctx *Context) CallCC(fn core.ExecFunc) *core.Promise {
	p := ctx.d.pool.registry.NewTaskPromise(ctx.d.id, ctx.promise, fn)
	ctx.d.Post(runnable{promise: p})
	return p
}

// Call submits fn as a parallel task (§4.1's call), routed by the
// dispatcher to any domain other than this one. It fails with
// ErrEmptyDomainPool when this is the only domain in the pool.
func (ctx *Context) Call(fn core.ExecFunc) (*core.Promise, error) {
	return ctx.d.pool.dispatcher.Submit(ctx.d, ctx.promise, fn)
}

// Make creates a Syscall promise (§4.1's make), owned by this domain and
// left Pending until either an EventsHook.Select call resolves it via
// onResolve or it is cancelled while still Pending.
func (ctx *Context) Make(onResolve func() (any, error)) *core.Promise {
	p := ctx.d.pool.registry.NewSyscallPromise(ctx.d.id, ctx.promise, onResolve)
	ctx.d.trackSyscall(p)
	return p
}

// atomicInt is a tiny CAS-able int wrapper; used only by AwaitFirst,
// which needs to store an index (not just a boolean flag) atomically.
type atomicInt struct {
	mu sync.Mutex
	v  int
}

func (a *atomicInt) Store(v int) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

func (a *atomicInt) Load() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}

func (a *atomicInt) CAS(old, new int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.v != old {
		return false
	}
	a.v = new
	return true
}
