package ioevents

import (
	"fmt"
	"time"

	"github.com/Swind/corert/domain"
)

// Sleep suspends the calling task for d, resolving with the wall-clock
// time it woke up at. It requires a Hook to be installed as rc's
// domain's EventsHook (via WithEventsHook(ioevents.NewHookFactory())).
func Sleep(rc *domain.Context, d time.Duration) (any, error) {
	hook, ok := rc.Hook().(*Hook)
	if !ok {
		return nil, fmt.Errorf("ioevents: domain %d has no ioevents.Hook installed", rc.DomainID())
	}
	p := rc.Make(func() (any, error) {
		time.Sleep(d)
		return time.Now(), nil
	})
	hook.RegisterAsync(p)
	return rc.Suspend(p)
}
