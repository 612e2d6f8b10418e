// Package corert is a composable concurrency runtime: a fixed pool of
// OS-thread-backed domains cooperatively scheduling user tasks, with
// promises as the sole unit of result delivery across and within
// domains, and a structured, top-down cancellation model.
//
// Run starts the runtime and executes a root task; every other
// operation (Call, CallCC, Make, Suspend, Await, AwaitAll, AwaitFirst,
// Yield, Cancel) is a free function taking the *Context handed to a
// running task closure, rather than a method on a god object.
package corert
