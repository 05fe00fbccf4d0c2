package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	FeaturesLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "featcast",
			Subsystem: "features",
			Name:      "latency_seconds",
			Help:      "Latency of feature endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	FeaturesErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featcast",
			Subsystem: "features",
			Name:      "errors_total",
			Help:      "Errors by feature endpoint",
		},
		[]string{"endpoint"},
	)

	EngineComputeHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "cache_hits_total",
			Help:      "Snapshot requests served from the fingerprint cache",
		},
	)

	EngineRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "recomputes_total",
			Help:      "Full feature recomputations",
		},
	)

	EngineComputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "compute_duration_seconds",
			Help:      "Wall time of full feature recomputations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	EngineRefits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "refits_total",
			Help:      "Successful model refits per recompute, by model",
		},
		[]string{"model"},
	)

	EngineFitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "fit_failures_total",
			Help:      "Model refits skipped for singular or data-starved windows, by model",
		},
		[]string{"model"},
	)

	EngineComputeBars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "featcast",
			Subsystem: "engine",
			Name:      "compute_bars",
			Help:      "Window length in bars of full feature recomputations",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			FeaturesLatency, FeaturesErrors,
			EngineComputeHits, EngineRecomputes,
			EngineRefits, EngineFitFailures,
			EngineComputeDuration, EngineComputeBars,
		)
	})
}

// EngineRecorder adapts the prometheus collectors to the engine's metrics hook.
type EngineRecorder struct{}

func NewEngineRecorder() *EngineRecorder {
	Register()
	return &EngineRecorder{}
}

func (EngineRecorder) RecordComputeHit() { EngineComputeHits.Inc() }

func (EngineRecorder) RecordRecompute(bars int, seconds float64) {
	EngineRecomputes.Inc()
	EngineComputeDuration.Observe(seconds)
	EngineComputeBars.Observe(float64(bars))
}

func (EngineRecorder) RecordFits(model string, refits, failures int) {
	if refits > 0 {
		EngineRefits.WithLabelValues(model).Add(float64(refits))
	}
	if failures > 0 {
		EngineFitFailures.WithLabelValues(model).Add(float64(failures))
	}
}
