package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fastygo/scheduler/domain"
)

const namespace = "scheduler"

// Metrics owns a private registry with scheduling run collectors.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	assigned    prometheus.Counter
	unplaced    prometheus.Counter
}

// New registers the run collectors. bufferSize, when set, is exported as a gauge.
func New(bufferSize func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scheduling runs by mode and final status.",
		}, []string{"mode", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a scheduling run including store access.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"mode"}),
		assigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_assigned_total",
			Help:      "Sessions given a therapist by a run.",
		}),
		unplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_unplaced_total",
			Help:      "Sessions a run left without a therapist.",
		}),
	}
	reg.MustRegister(
		m.runs, m.runDuration, m.assigned, m.unplaced,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if bufferSize != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_batches",
			Help:      "Assignment batches waiting for a store retry.",
		}, func() float64 { return float64(bufferSize()) }))
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun implements usecase.RunRecorder.
func (m *Metrics) RecordRun(mode string, status domain.RunStatus, elapsed time.Duration, assigned, unplaced int) {
	m.runs.WithLabelValues(mode, string(status)).Inc()
	m.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.assigned.Add(float64(assigned))
	m.unplaced.Add(float64(unplaced))
}
