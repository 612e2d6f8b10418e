package corert

import "github.com/Swind/corert/domain"

// Call submits closure as a parallel task (§4.1), routed by the
// dispatcher to a domain other than rc's own.
func Call(rc *Context, closure func(*Context) (any, error)) (*Promise, error) {
	return rc.Call(wrap(closure))
}

// CallCC submits closure as a same-domain concurrent task (§4.1): it
// only ever interleaves with other tasks already on rc's domain.
func CallCC(rc *Context, closure func(*Context) (any, error)) *Promise {
	return rc.CallCC(wrap(closure))
}

// Make creates a Syscall promise resolved later by onResolve, once an
// EventsHook decides it is ready (§4.1).
func Make(rc *Context, onResolve func() (any, error)) *Promise {
	return rc.Make(onResolve)
}

// Suspend parks rc's task until p leaves Pending, without consuming it.
func Suspend(rc *Context, p *Promise) (any, error) {
	return rc.Suspend(p)
}

// Await parks rc's task until p leaves Pending and consumes it,
// returning ErrAlreadyConsumed on a second call for the same promise.
func Await(rc *Context, p *Promise) (any, error) {
	return rc.Await(p)
}

// AwaitAll awaits every promise in ps, aggregating failures.
func AwaitAll(rc *Context, ps []*Promise) ([]any, error) {
	return rc.AwaitAll(ps)
}

// AwaitFirst races ps and cancels whichever did not win.
func AwaitFirst(rc *Context, ps []*Promise) (any, error) {
	return rc.AwaitFirst(ps)
}

// Cancel requests cancellation of p and its entire subtree (§4.5); safe
// to call from any goroutine, task or not.
func Cancel(p *Promise) {
	domain.Cancel(p)
}

// Yield voluntarily gives up rc's domain, re-queuing the current task
// for random reselection.
func Yield(rc *Context) {
	rc.Yield()
}

// UID returns p's process-wide identity.
func UID(p *Promise) PromiseID { return p.ID() }

// IsPending reports whether p has not yet left the Pending state.
func IsPending(p *Promise) bool { return p.IsPending() }

// Task builds a RunnableEntry that resolves p by running closure once,
// synchronously, with no suspension capability of its own — the
// Context passed to closure has no owning domain, so calling Suspend,
// Await, Call, or CallCC on it panics. It exists for EventsHook
// implementations that want to describe a completed I/O operation's
// result in terms of the same closure signature the rest of the API
// uses, rather than a bare `func() (any, error)`. See ioevents.Hook for
// a concrete EventsHook built on it.
func Task(p *Promise, closure func(*Context) (any, error)) RunnableEntry {
	return domain.Task(p, closure)
}

func wrap(closure func(*Context) (any, error)) func(any) (any, error) {
	return func(env any) (any, error) {
		return closure(env.(*Context))
	}
}
