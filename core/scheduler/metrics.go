package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	chunksTotal     *prometheus.CounterVec
	chunkDuration   *prometheus.HistogramVec
	chunksInFlight  prometheus.Gauge
	variantsDecoded *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Gauge, *prometheus.CounterVec) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsim_chunks_total",
			Help: "Number of chunk tasks by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridsim_chunk_duration_seconds",
			Help:    "Wall time of chunk tasks from submission to outcome",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"outcome"},
	)
	inflight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridsim_chunks_in_flight",
			Help: "Number of chunk tasks currently running",
		},
	)
	variants := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsim_variants_total",
			Help: "Number of variant result files handled by status",
		},
		[]string{"status"},
	)
	return total, dur, inflight, variants
}

func init() {
	chunksTotal, chunkDuration, chunksInFlight, variantsDecoded = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(chunksTotal, chunkDuration, chunksInFlight, variantsDecoded)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	chunksTotal, chunkDuration, chunksInFlight, variantsDecoded = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
