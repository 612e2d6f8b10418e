package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task's closure panics during execution.
// The panic is always converted into the promise's Failed outcome first;
// PanicHandler exists purely for out-of-band reporting (logging,
// telemetry), never to alter the promise's fate.
//
// Implementations should be thread-safe: they may be called concurrently
// from multiple domains.
type PanicHandler interface {
	HandlePanic(domainID int, promiseID PromiseID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics to stdout.
type DefaultPanicHandler struct{}

func (h *DefaultPanicHandler) HandlePanic(domainID int, promiseID PromiseID, panicInfo any, stackTrace []byte) {
	fmt.Printf("[domain %d] promise %d panicked: %v\n%s\n", domainID, promiseID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.). All methods are optional; implementations should handle
// nil receivers gracefully and be non-blocking.
type Metrics interface {
	// RecordTaskDuration records how long a task's closure ran on a domain.
	RecordTaskDuration(domainID int, duration time.Duration)
	// RecordTaskPanic records that a task's closure panicked.
	RecordTaskPanic(domainID int, panicInfo any)
	// RecordTaskRejected records that a task was rejected (e.g. EmptyDomainPool).
	RecordTaskRejected(reason string)
	// RecordQueueDepth records a domain's run-queue depth.
	RecordQueueDepth(domainID int, depth int)
	// RecordDispatcherDepth records the cross-domain dispatcher queue depth.
	RecordDispatcherDepth(depth int)
	// RecordCancellation records a promise reaching the Cancelled state.
	RecordCancellation(domainID int)
	// RecordRegistrySize records the number of live promises tracked.
	RecordRegistrySize(size int)
}

// NilMetrics is a no-op Metrics implementation; it is the default.
type NilMetrics struct{}

func (NilMetrics) RecordTaskDuration(int, time.Duration) {}
func (NilMetrics) RecordTaskPanic(int, any)               {}
func (NilMetrics) RecordTaskRejected(string)               {}
func (NilMetrics) RecordQueueDepth(int, int)                {}
func (NilMetrics) RecordDispatcherDepth(int)                {}
func (NilMetrics) RecordCancellation(int)                   {}
func (NilMetrics) RecordRegistrySize(int)                   {}

// =============================================================================
// EventsHook: the boundary contract external I/O modules implement (§6)
// =============================================================================

// EventsHook is supplied per-domain by external I/O code. Select runs only
// when the owning domain is otherwise idle but still owns Pending
// promises; it may block, but must eventually return, bounded by a call
// to Interrupt from another goroutine. Interrupt is safe to call from any
// domain and must be race-free and idempotent between consecutive Select
// invocations (§5's interrupt protocol).
type EventsHook interface {
	Select() []RunnableEntry
	Interrupt()
}

// NoopEventsHook is the default: Select always returns immediately with no
// work, and Interrupt does nothing. A runtime configured with it exits
// cleanly once every task finishes, exactly as §6 specifies.
type NoopEventsHook struct{}

func (NoopEventsHook) Select() []RunnableEntry { return nil }
func (NoopEventsHook) Interrupt()              {}

// EventsHookFactory builds one EventsHook instance per domain; the hook's
// internal state (timer wheels, fd tables, ...) is domain-local by
// construction because each domain gets its own instance (§5).
type EventsHookFactory func(domainID int) EventsHook

func NoopEventsHookFactory(int) EventsHook { return NoopEventsHook{} }
