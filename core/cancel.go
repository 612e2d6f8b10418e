package core

import (
	"github.com/hashicorp/go-multierror"
)

// RequestCancelSubtree marks p and every descendant of p as
// cancellation-requested, top-down, and returns the full set touched.
// Propagation is strictly top-down (§4.5: "cancelling a child does not
// affect the parent"), so this never walks upward through p.parent.
//
// The actual state transition for each promise (direct-to-Cancelled for
// not-yet-started tasks, flag-observed-at-next-suspension-point for
// running tasks, interrupt-driven for syscall promises) is the domain
// package's job, since it requires touching per-domain run queues and
// EventsHook instances; this function only performs the pure graph walk
// invariant 3/4.5 describe.
func RequestCancelSubtree(p *Promise) []*Promise {
	touched := make([]*Promise, 0, 8)
	var walk func(*Promise)
	walk = func(n *Promise) {
		n.RequestCancel()
		touched = append(touched, n)
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(p)
	return touched
}

// AggregateOutcomeErrors combines the terminal errors of several promises
// (the outcomes Context.AwaitAll collected) into a single error, or nil if
// none failed. A lone failing child's error is returned unwrapped so the
// common case doesn't force callers to unwrap a one-element multierror.
func AggregateOutcomeErrors(outcomes []Outcome) error {
	var merr *multierror.Error
	for _, o := range outcomes {
		if o.Err != nil {
			merr = multierror.Append(merr, o.Err)
		}
	}
	if merr == nil {
		return nil
	}
	if len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	return merr
}
