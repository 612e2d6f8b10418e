package core

import "runtime"

// Config bundles every ambient dependency the runtime needs: how many
// domains to spawn, the PRNG seed, and the pluggable Logger/Metrics/
// PanicHandler/EventsHook implementations. It is a struct of optional
// fields, filled in with defaults wherever the caller left them nil.
type Config struct {
	// Domains is the total number of domains, including the main domain
	// that runs the root task. Defaults to runtime.NumCPU()-1, floored at 1.
	Domains int
	// Seed seeds the shared RNG used for run-queue and dispatcher
	// selection. Zero requests a fresh, unpredictable seed.
	Seed uint64

	Logger       Logger
	Metrics      Metrics
	PanicHandler PanicHandler
	EventsHook   EventsHookFactory
}

// DefaultConfig returns a Config with every field populated by a
// sensible default.
func DefaultConfig() *Config {
	return &Config{
		Domains:      defaultDomainCount(),
		Logger:       NewDefaultLogger(),
		Metrics:      NilMetrics{},
		PanicHandler: &DefaultPanicHandler{},
		EventsHook:   NoopEventsHookFactory,
	}
}

func defaultDomainCount() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}

// ApplyDefaults fills in any unset field of c with DefaultConfig's value.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Domains <= 0 {
		c.Domains = d.Domains
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if c.PanicHandler == nil {
		c.PanicHandler = d.PanicHandler
	}
	if c.EventsHook == nil {
		c.EventsHook = d.EventsHook
	}
}
