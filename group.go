package corert

// Group batches a slice of closures through Call and awaits all of them,
// returning either every result in order or the aggregated failure — the
// "parallel map" pattern. Grounded on warpfork-go-sup's supervision.go
// parent/child bookkeeping (spawn N children, wait on the whole set) and
// asmsh-promise's group.go, reshaped around Call/AwaitAll instead of
// their respective scheduler primitives.
func Group(rc *Context, closures []func(*Context) (any, error)) ([]any, error) {
	if len(closures) == 0 {
		return nil, ErrEmptyAwait
	}
	promises := make([]*Promise, len(closures))
	for i, fn := range closures {
		p, err := Call(rc, fn)
		if err != nil {
			// EmptyDomainPool: fall back to same-domain concurrent tasks so
			// Group still degrades gracefully on a single-domain runtime.
			p = CallCC(rc, fn)
		}
		promises[i] = p
	}
	return AwaitAll(rc, promises)
}
