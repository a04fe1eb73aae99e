package solver

import "github.com/prometheus/client_golang/prometheus"

var (
	slotsInUse  prometheus.Gauge
	slotWait    prometheus.Histogram
	processRuns *prometheus.CounterVec
)

func newCollectors() (prometheus.Gauge, prometheus.Histogram, *prometheus.CounterVec) {
	slots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridsim_solver_slots_in_use",
		Help: "Number of solver processes currently running",
	})
	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridsim_solver_slot_wait_seconds",
		Help:    "Time spent waiting for a free solver slot",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsim_solver_processes_total",
		Help: "Number of solver processes by result",
	}, []string{"result"})
	return slots, wait, runs
}

func init() {
	slotsInUse, slotWait, processRuns = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers solver metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(slotsInUse, slotWait, processRuns)
}

// ResetMetrics reinitializes the collectors for tests and registers them on
// reg when not nil.
func ResetMetrics(reg prometheus.Registerer) {
	slotsInUse, slotWait, processRuns = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
