package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/gridsim/core/metrics"
)

// PromSink records chunk executions in Prometheus metrics.
type PromSink struct {
	chunks   *prometheus.CounterVec
	variants *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failed   *prometheus.GaugeVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	chunks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metrix_chunks_total",
		Help: "Chunk executions by version and outcome",
	}, []string{"version", "outcome"})
	variants := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metrix_variants_total",
		Help: "Variant result files by version and decode status",
	}, []string{"version", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metrix_chunk_seconds",
		Help:    "Duration of chunk executions",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"outcome"})
	failed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "metrix_run_failed_chunks",
		Help: "Failed chunks of the last finished run",
	}, []string{"run_id"})

	var err error
	if chunks, err = register(reg, chunks); err != nil {
		return nil, err
	}
	if variants, err = register(reg, variants); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if failed, err = register(reg, failed); err != nil {
		return nil, err
	}
	return &PromSink{chunks: chunks, variants: variants, duration: duration, failed: failed}, nil
}

// register returns the already registered collector when c was registered
// before, so several sinks can share the default registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordChunk updates the counters for one chunk.
func (s *PromSink) RecordChunk(ev coremetrics.ChunkExecution) error {
	version := strconv.Itoa(ev.Version)
	s.chunks.WithLabelValues(version, ev.Outcome).Inc()
	s.variants.WithLabelValues(version, "decoded").Add(float64(ev.Decoded))
	s.variants.WithLabelValues(version, "missing").Add(float64(ev.Missing))
	s.variants.WithLabelValues(version, "invalid").Add(float64(ev.Invalid))
	s.duration.WithLabelValues(ev.Outcome).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRun sets the failed chunk gauge of the run.
func (s *PromSink) RecordRun(ev coremetrics.RunSummary) error {
	s.failed.WithLabelValues(ev.RunID).Set(float64(ev.Failed))
	return nil
}
