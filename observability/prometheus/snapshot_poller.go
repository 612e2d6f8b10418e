package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/corert/core"
)

// RuntimeSnapshotProvider provides current runtime stats snapshots.
// domain.Pool satisfies this directly via its Stats method.
type RuntimeSnapshotProvider interface {
	Stats() core.RuntimeStats
}

// SnapshotPoller periodically exports RuntimeStats snapshots into
// Prometheus gauges, for the introspection state Metrics alone can't
// carry (queue depths and quiescence are point-in-time, not counters).
type SnapshotPoller struct {
	interval time.Duration

	runtimesMu sync.RWMutex
	runtimes   map[string]RuntimeSnapshotProvider

	runQueueDepth  *prom.GaugeVec
	pendingOwned   *prom.GaugeVec
	quiescent      *prom.GaugeVec
	dispatcherSize *prom.GaugeVec
	registrySize   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	runQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "corert",
		Name:      "snapshot_run_queue_depth",
		Help:      "Run-queue depth per domain, from the latest Stats() snapshot.",
	}, []string{"runtime", "domain"})
	pendingOwned := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "corert",
		Name:      "snapshot_pending_owned",
		Help:      "Number of Pending promises owned by each domain.",
	}, []string{"runtime", "domain"})
	quiescent := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "corert",
		Name:      "snapshot_domain_quiescent",
		Help:      "Whether a domain currently owns no pending work (1=quiescent).",
	}, []string{"runtime", "domain"})
	dispatcherSize := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "corert",
		Name:      "snapshot_dispatcher_queued",
		Help:      "Cross-domain dispatcher queue depth.",
	}, []string{"runtime"})
	registrySize := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "corert",
		Name:      "snapshot_registry_size",
		Help:      "Number of promises tracked by the registry.",
	}, []string{"runtime"})

	var err error
	if runQueueDepth, err = registerCollector(reg, runQueueDepth); err != nil {
		return nil, err
	}
	if pendingOwned, err = registerCollector(reg, pendingOwned); err != nil {
		return nil, err
	}
	if quiescent, err = registerCollector(reg, quiescent); err != nil {
		return nil, err
	}
	if dispatcherSize, err = registerCollector(reg, dispatcherSize); err != nil {
		return nil, err
	}
	if registrySize, err = registerCollector(reg, registrySize); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		runtimes:       make(map[string]RuntimeSnapshotProvider),
		runQueueDepth:  runQueueDepth,
		pendingOwned:   pendingOwned,
		quiescent:      quiescent,
		dispatcherSize: dispatcherSize,
		registrySize:   registrySize,
	}, nil
}

// AddRuntime adds or replaces a runtime snapshot provider by name.
func (p *SnapshotPoller) AddRuntime(name string, provider RuntimeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runtime")
	p.runtimesMu.Lock()
	p.runtimes[name] = provider
	p.runtimesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}
	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runtimesMu.RLock()
	defer p.runtimesMu.RUnlock()

	for name, provider := range p.runtimes {
		stats := provider.Stats()
		p.dispatcherSize.WithLabelValues(name).Set(float64(stats.DispatcherQueued))
		p.registrySize.WithLabelValues(name).Set(float64(stats.RegistrySize))
		for _, d := range stats.Domains {
			domain := domainLabel(d.DomainID)
			p.runQueueDepth.WithLabelValues(name, domain).Set(float64(d.RunQueueDepth))
			p.pendingOwned.WithLabelValues(name, domain).Set(float64(d.PendingOwned))
			if d.Quiescent {
				p.quiescent.WithLabelValues(name, domain).Set(1)
			} else {
				p.quiescent.WithLabelValues(name, domain).Set(0)
			}
		}
	}
}
