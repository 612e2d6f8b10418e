package corert

import "github.com/Swind/corert/domain"

// RunOption configures a Run call via the functional-options pattern.
type RunOption func(*Config)

// WithDomains sets the total number of domains, including the one
// running the root task. The default is runtime.NumCPU()-1, floored
// at 1.
func WithDomains(n int) RunOption {
	return func(c *Config) { c.Domains = n }
}

// WithSeed pins the shared PRNG's seed, for reproducible tests. Leaving
// it at zero (the default) draws a fresh seed from crypto/rand.
func WithSeed(seed uint64) RunOption {
	return func(c *Config) { c.Seed = seed }
}

func WithLogger(l Logger) RunOption {
	return func(c *Config) { c.Logger = l }
}

func WithMetrics(m Metrics) RunOption {
	return func(c *Config) { c.Metrics = m }
}

func WithPanicHandler(h PanicHandler) RunOption {
	return func(c *Config) { c.PanicHandler = h }
}

// WithEventsHook installs a per-domain EventsHook factory (§6's external
// boundary). Every domain gets its own instance.
func WithEventsHook(f func(domainID int) EventsHook) RunOption {
	return func(c *Config) { c.EventsHook = f }
}

// Run starts a fixed pool of domains and runs body as the root task on
// domain 0, blocking until the whole task tree it spawns settles.
// Exactly one Run call is meant to be active per process at a time
// (§2); Cancel relies on that to reach the active pool.
func Run(body func(*Context) (any, error), opts ...RunOption) (any, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.ApplyDefaults()

	pool := domain.NewPool(cfg)
	return pool.RunWithActivePool(func(env any) (any, error) {
		return body(env.(*Context))
	})
}
