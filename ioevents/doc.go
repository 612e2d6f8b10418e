// Package ioevents is a concrete core.EventsHook implementation (§6)
// built entirely on the standard library's net and time packages — the
// pack has no example importing golang.org/x/sys/unix or an epoll/kqueue
// binding, so this reactor gets non-blocking-equivalent behavior by
// running each blocking stdlib call (net.Conn.Read, time.Sleep, ...) on
// its own throwaway goroutine and reporting completion back through the
// hook, the same "coroutine via blocked goroutine" trick the domain
// package uses for task suspension.
//
// One Hook instance is created per domain (via NewHookFactory), matching
// §5's requirement that EventsHook state be domain-local.
package ioevents
