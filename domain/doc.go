// Package domain implements the scheduler proper: the per-domain run
// queue and event loop (C2/C3), the cross-domain dispatcher for
// parallel `call` submissions (C4), and the pool that wires a fixed set
// of domains together (the glue), along with the Cancel entry point that
// drives C5's cancellation delivery. It sits directly on top of package
// core's promise registry and error taxonomy, and is in turn wrapped by
// the root corert package's free-function API.
//
// Every exported operation that suspends a task (Suspend, Await,
// AwaitAll, AwaitFirst, Yield) is only valid when called from inside a
// task closure currently running on the domain that owns the *Context
// passed to it; calling them from arbitrary goroutines has undefined
// scheduling behavior.
package domain
