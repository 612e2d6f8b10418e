package ioevents

import (
	"sync"
	"time"

	"github.com/Swind/corert/core"
	"github.com/Swind/corert/domain"
)

// Hook is a core.EventsHook backed by a pool of throwaway goroutines,
// one per outstanding asynchronous operation. RegisterAsync runs a
// promise's own on_resolve closure on one of those goroutines, off any
// domain's scheduler goroutine entirely; Select only ever touches the
// completed queue and a small wake channel, so it never itself performs
// blocking I/O.
type Hook struct {
	mu    sync.Mutex
	ready []core.RunnableEntry
	wake  chan struct{}
}

// NewHook builds an empty Hook.
func NewHook() *Hook {
	return &Hook{wake: make(chan struct{}, 1)}
}

// NewHookFactory adapts NewHook to core.EventsHookFactory, handing each
// domain its own independent Hook instance.
func NewHookFactory() core.EventsHookFactory {
	return func(domainID int) core.EventsHook { return NewHook() }
}

var _ core.EventsHook = (*Hook)(nil)

// RegisterAsync runs p's own on_resolve closure (the actual blocking
// work — time.Sleep, net.Dial, conn.Read, ...) on a new goroutine and,
// once it returns, queues the already-computed result as a
// domain.Task-shaped RunnableEntry. This is the one primitive every
// other helper in this package (Sleep, Read, Write, Accept, Dial) is
// built from; none of them carry a second, parallel closure of their
// own; the value Make's on_resolve promises to produce is exactly the
// value that ends up resolving p.
func (h *Hook) RegisterAsync(p *core.Promise) {
	go func() {
		value, err := p.OnResolve()()
		entry := domain.Task(p, func(*domain.Context) (any, error) { return value, err })
		h.mu.Lock()
		h.ready = append(h.ready, entry)
		h.mu.Unlock()
		h.Interrupt()
	}()
}

// Select returns whatever async operations have completed since the
// last call, blocking briefly if none have, bounded by either a wake
// signal from RegisterAsync/Interrupt or a fixed poll interval so a
// domain that's otherwise idle still notices cancellation promptly.
func (h *Hook) Select() []core.RunnableEntry {
	if entries := h.drain(); len(entries) > 0 {
		return entries
	}
	select {
	case <-h.wake:
	case <-time.After(25 * time.Millisecond):
	}
	return h.drain()
}

func (h *Hook) drain() []core.RunnableEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ready) == 0 {
		return nil
	}
	out := h.ready
	h.ready = nil
	return out
}

// Interrupt unblocks a concurrent Select call. Safe from any goroutine,
// idempotent between consecutive Select calls (§5's interrupt protocol).
func (h *Hook) Interrupt() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}
