package domain

import (
	"sync"

	"github.com/Swind/corert/core"
)

// Pool is the glue component (§4.2's overview diagram): it owns the
// registry, the shared RNG, the dispatcher, and every Domain.
type Pool struct {
	cfg      *core.Config
	registry *core.Registry
	rng      *core.RNG

	dispatcher *Dispatcher
	domains    []*Domain
}

// NewPool builds a pool of cfg.Domains domains, each with its own
// EventsHook instance from cfg.EventsHook (§5: hook state is
// domain-local by construction). ApplyDefaults must already have been
// called on cfg.
func NewPool(cfg *core.Config) *Pool {
	p := &Pool{
		cfg:      cfg,
		registry: core.NewRegistry(),
		rng:      core.NewRNG(cfg.Seed),
	}
	p.dispatcher = newDispatcher(p)
	p.domains = make([]*Domain, cfg.Domains)
	for i := 0; i < cfg.Domains; i++ {
		p.domains[i] = newDomain(i, p, cfg.EventsHook(i))
	}
	return p
}

// RandomOtherDomain picks a domain other than exclude, uniformly at
// random. ok is false when the pool has no such domain (§7's
// EmptyDomainPool edge case: a single-domain pool with nothing else to
// route a `call` to).
func (p *Pool) RandomOtherDomain(exclude int) (*Domain, bool) {
	candidates := make([]*Domain, 0, len(p.domains))
	for _, d := range p.domains {
		if d.id != exclude {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[p.rng.IntN(len(candidates))], true
}

func (p *Pool) domainByID(id int) *Domain {
	if id < 0 || id >= len(p.domains) {
		return nil
	}
	return p.domains[id]
}

// NotifyCancel pokes promise's owner domain so it observes
// CancelRequested on its next loop iteration, whether that means forcing
// a not-yet-started Task promise straight to Cancelled, unparking a
// running task's next suspension point, or clearing a Pending Syscall
// promise during the domain's clean pass.
func (p *Pool) NotifyCancel(promise *core.Promise) {
	d := p.domainByID(promise.OwnerDomain())
	if d == nil {
		return
	}
	d.Post(runnable{promise: promise})
}

// Run spawns every domain, runs body as the root task on domain 0, and
// blocks until it settles. Because a promise cannot leave Pending while
// it still has Pending children (invariant 3, enforced recursively by
// Domain.finalize at every level), the entire task tree rooted at body
// is guaranteed to have already reached a terminal state by the time
// Run returns — there is nothing left to drain.
func (p *Pool) Run(body core.ExecFunc) (any, error) {
	var wg sync.WaitGroup
	wg.Add(len(p.domains))
	for _, d := range p.domains {
		d := d
		go func() {
			defer wg.Done()
			d.run()
		}()
	}

	root := p.registry.NewTaskPromise(0, nil, body)
	doneCh := make(chan core.Outcome, 1)
	imm, already := root.SetWaiter(func(o core.Outcome) { doneCh <- o })
	if already {
		doneCh <- *imm
	} else {
		p.domains[0].Post(runnable{promise: root})
	}

	out := <-doneCh
	p.shutdown()
	wg.Wait()
	return out.Value, out.Err
}

func (p *Pool) shutdown() {
	for _, d := range p.domains {
		close(d.stop)
		d.hook.Interrupt()
		select {
		case d.wakeCh <- struct{}{}:
		default:
		}
	}
}

// Stats returns a point-in-time snapshot across every domain plus the
// registry, backing the runtime's Stats() introspection call.
func (p *Pool) Stats() core.RuntimeStats {
	out := core.RuntimeStats{
		Domains:      make([]core.DomainStats, len(p.domains)),
		RegistrySize: p.registry.Len(),
	}
	for i, d := range p.domains {
		d.mu.Lock()
		out.Domains[i] = core.DomainStats{
			DomainID:      d.id,
			RunQueueDepth: d.rq.Len(),
			PendingOwned:  len(d.contexts) + len(d.liveSyscalls),
			Quiescent:     len(d.contexts) == 0 && len(d.liveSyscalls) == 0,
		}
		d.mu.Unlock()
	}
	return out
}

// --- process-wide active pool, needed so top-level Cancel(p) calls
// (which carry no *Context) can still reach the running pool. §2's
// "exactly one call per process" keeps this safe.

var (
	activeMu   sync.Mutex
	activePool *Pool
)

func setActivePool(p *Pool) {
	activeMu.Lock()
	activePool = p
	activeMu.Unlock()
}

func clearActivePool(p *Pool) {
	activeMu.Lock()
	if activePool == p {
		activePool = nil
	}
	activeMu.Unlock()
}

// Cancel requests cancellation of p and its entire subtree (§4.5). It is
// safe to call from any goroutine, including outside of any task.
func Cancel(p *core.Promise) {
	activeMu.Lock()
	pool := activePool
	activeMu.Unlock()
	touched := core.RequestCancelSubtree(p)
	if pool == nil {
		return
	}
	for _, n := range touched {
		pool.NotifyCancel(n)
	}
}

// RunWithActivePool wraps Pool.Run, registering p as the process-wide
// active pool for the duration of the call so Cancel can reach it.
func (p *Pool) RunWithActivePool(body core.ExecFunc) (any, error) {
	setActivePool(p)
	defer clearActivePool(p)
	return p.Run(body)
}
