package corert

import (
	"time"

	"github.com/Swind/corert/ioevents"
)

// WithTimeout runs closure as a parallel task (or as a same-domain
// CallCC task when Call reports no other domain) and races it against a
// timer, returning ErrCancelled if the timer wins. It is built entirely
// on Make/Suspend and ioevents' asynchronous timer, demonstrating that
// timeouts are an external collaborator layered on top of the core
// primitives rather than a scheduler built-in (§9).
func WithTimeout(rc *Context, d time.Duration, closure func(*Context) (any, error)) (any, error) {
	work, err := Call(rc, closure)
	if err != nil {
		work = CallCC(rc, closure)
	}

	hook, ok := rc.Hook().(*ioevents.Hook)
	if !ok {
		// No timer-capable EventsHook installed: fall back to a plain
		// await, forgoing the timeout rather than leaking a promise that
		// can never resolve.
		return Await(rc, work)
	}

	timerPromise := rc.Make(func() (any, error) {
		time.Sleep(d)
		return nil, ErrCancelled
	})
	hook.RegisterAsync(timerPromise)

	return AwaitFirst(rc, []*Promise{work, timerPromise})
}
