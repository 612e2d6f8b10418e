package domain

import "github.com/Swind/corert/core"

// Dispatcher implements §4.2's C4: routing for parallel `call` task
// submissions. Because the spec explicitly rules out work stealing
// between domains (§7's Non-goals), routing decisions are made once, at
// submission time, rather than rebalanced later — the target domain is
// chosen uniformly at random from every domain other than the caller's,
// and the task is handed directly to that domain's own queue. That
// queue (backed by Domain.Post/RunQueue) is itself what "queues" the
// submission when the target domain is busy; there is no separate
// dispatcher-side backlog to inspect.
type Dispatcher struct {
	pool *Pool
}

func newDispatcher(pool *Pool) *Dispatcher {
	return &Dispatcher{pool: pool}
}

// Submit creates the parallel task's promise, owned by a domain other
// than caller, and posts it there. It fails with ErrEmptyDomainPool if
// the pool has no other domain to route to (§4.1's call, and §7's
// EmptyDomainPool edge case).
func (disp *Dispatcher) Submit(caller *Domain, parent *core.Promise, fn core.ExecFunc) (*core.Promise, error) {
	target, ok := disp.pool.RandomOtherDomain(caller.id)
	if !ok {
		disp.pool.cfg.Logger.Warn("cross-domain routing failed", core.F("caller", caller.id), core.F("reason", "EmptyDomainPool"))
		disp.pool.cfg.Metrics.RecordTaskRejected("EmptyDomainPool")
		return nil, core.ErrEmptyDomainPool
	}
	p := disp.pool.registry.NewTaskPromise(target.id, parent, fn)
	target.Post(runnable{promise: p})
	return p, nil
}
