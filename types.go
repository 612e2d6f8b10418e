package corert

import (
	"github.com/Swind/corert/core"
	"github.com/Swind/corert/domain"
)

// Type aliases so callers only ever import the root package for the
// public surface, while the implementation stays split across core
// (promise/registry/error taxonomy) and domain (scheduler proper).
type (
	Context     = domain.Context
	Promise     = core.Promise
	PromiseID   = core.PromiseID
	Outcome     = core.Outcome
	RunnableEntry = core.RunnableEntry

	Logger       = core.Logger
	Field        = core.Field
	Metrics      = core.Metrics
	PanicHandler = core.PanicHandler
	EventsHook   = core.EventsHook
	Config       = core.Config

	DomainStats  = core.DomainStats
	RuntimeStats = core.RuntimeStats
)

// Re-exported sentinel errors, so callers can write errors.Is(err,
// corert.ErrCancelled) without importing core directly.
var (
	ErrCancelled       = core.ErrCancelled
	ErrAlreadyConsumed = core.ErrAlreadyConsumed
	ErrForeignPromise  = core.ErrForeignPromise
	ErrEmptyDomainPool = core.ErrEmptyDomainPool
	ErrEmptyAwait      = core.ErrEmptyAwait
)

// F builds a structured logging Field, re-exported for convenience.
func F(key string, value any) Field { return core.F(key, value) }
