package domain

import "github.com/Swind/corert/core"

// runnable is one entry a domain's run queue can hold: always a
// reference to a task promise, either about to start for the first time
// or about to be resumed from a parked suspension point. Domain.dispatch
// tells the two cases apart by checking whether it already has a
// *Context on file for the promise.
type runnable struct {
	promise *core.Promise
}

// RunQueue is the per-domain ready set described in §4.2. Selection among
// ready entries is randomized with respect to a shared, runtime-seeded
// PRNG; there is deliberately no FIFO guarantee (§9: "a security decision
// in the source (no priority oracle)").
type RunQueue struct {
	rng   *core.RNG
	items []runnable
}

func NewRunQueue(rng *core.RNG) *RunQueue {
	return &RunQueue{rng: rng}
}

func (q *RunQueue) Push(r runnable) {
	q.items = append(q.items, r)
}

// Next removes and returns one ready entry, chosen uniformly at random
// among everything currently queued. ok is false iff the queue is empty.
func (q *RunQueue) Next() (runnable, bool) {
	n := len(q.items)
	if n == 0 {
		return runnable{}, false
	}
	i := q.rng.IntN(n)
	r := q.items[i]
	q.items[i] = q.items[n-1]
	q.items[n-1] = runnable{}
	q.items = q.items[:n-1]
	return r, true
}

func (q *RunQueue) Len() int { return len(q.items) }
