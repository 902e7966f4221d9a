package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for pipeline activity.
type Metrics struct {
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	stageFallbacks *prometheus.CounterVec
	jobsActive     prometheus.Gauge
	jobsTotal      *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns metrics registered once with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the pipeline collectors with reg, reusing collectors that are
// already registered. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shortforge",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage", "status"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortforge",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Stage failures, fatal or degraded, by reason.",
		}, []string{"stage", "reason"}),
		stageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortforge",
			Subsystem: "pipeline",
			Name:      "stage_fallbacks_total",
			Help:      "Times a stage continued on its fallback path.",
		}, []string{"stage"}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shortforge",
			Subsystem: "pipeline",
			Name:      "jobs_active",
			Help:      "Jobs currently executing.",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortforge",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Jobs that reached a terminal status.",
		}, []string{"status"}),
	}

	m.stageDuration = register(reg, m.stageDuration)
	m.stageFailures = register(reg, m.stageFailures)
	m.stageFallbacks = register(reg, m.stageFallbacks)
	m.jobsActive = register(reg, m.jobsActive)
	m.jobsTotal = register(reg, m.jobsTotal)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (m *Metrics) IncStageFailure(stage, reason string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) IncFallback(stage string) {
	if m == nil {
		return
	}
	m.stageFallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsActive.Inc()
}

// JobFinished decrements the active gauge and counts the terminal status.
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
	m.jobsTotal.WithLabelValues(status).Inc()
}

// JobAbandoned decrements the active gauge for a run that stopped because another writer
// had already finalised the job; the terminal status was counted there.
func (m *Metrics) JobAbandoned() {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
}
