// Package prometheus adapts core.Metrics and the runtime's Stats()
// snapshots onto github.com/prometheus/client_golang.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/corert/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors, one set
// of vectors labeled by domain id instead of by runner name.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec
	dispatcherDepth     prom.Gauge
	cancellationsTotal  *prom.CounterVec
	registrySize        prom.Gauge
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors backing
// core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "corert"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"domain"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"domain"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected task submissions.",
	}, []string{"reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "run_queue_depth",
		Help:      "Current per-domain run-queue depth.",
	}, []string{"domain"})
	dispatcherDepth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatcher_queue_depth",
		Help:      "Current cross-domain dispatcher queue depth.",
	})
	cancellationsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Total number of promises that reached the Cancelled state.",
	}, []string{"domain"})
	registrySize := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_size",
		Help:      "Number of promises currently tracked by the registry.",
	})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if dispatcherDepth, err = registerCollector(reg, dispatcherDepth); err != nil {
		return nil, err
	}
	if cancellationsVec, err = registerCollector(reg, cancellationsVec); err != nil {
		return nil, err
	}
	if registrySize, err = registerCollector(reg, registrySize); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		queueDepth:          queueDepthVec,
		dispatcherDepth:     dispatcherDepth,
		cancellationsTotal:  cancellationsVec,
		registrySize:        registrySize,
	}, nil
}

func (m *MetricsExporter) RecordTaskDuration(domainID int, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(domainLabel(domainID)).Observe(duration.Seconds())
}

func (m *MetricsExporter) RecordTaskPanic(domainID int, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(domainLabel(domainID)).Inc()
}

func (m *MetricsExporter) RecordTaskRejected(reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

func (m *MetricsExporter) RecordQueueDepth(domainID int, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(domainLabel(domainID)).Set(float64(depth))
}

func (m *MetricsExporter) RecordDispatcherDepth(depth int) {
	if m == nil {
		return
	}
	m.dispatcherDepth.Set(float64(depth))
}

func (m *MetricsExporter) RecordCancellation(domainID int) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(domainLabel(domainID)).Inc()
}

func (m *MetricsExporter) RecordRegistrySize(size int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(size))
}

func domainLabel(id int) string { return fmt.Sprintf("%d", id) }

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
