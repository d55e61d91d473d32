// Package metrics exposes provisioning metrics through Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ephemera"

// Metrics holds the provisioning collectors.
type Metrics struct {
	started       *prometheus.CounterVec
	startFailures *prometheus.CounterVec
	stopFailures  *prometheus.CounterVec
	startDuration *prometheus.HistogramVec
	active        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Collectors already registered on reg are reused.
// Returns nil when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	return &Metrics{
		started: registerOrReuse(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_started_total",
				Help:      "Total number of service instances started, by provider",
			},
			[]string{"provider"},
		)).(*prometheus.CounterVec),
		startFailures: registerOrReuse(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instance_start_failures_total",
				Help:      "Total number of service instances that failed to build or start, by provider",
			},
			[]string{"provider"},
		)).(*prometheus.CounterVec),
		stopFailures: registerOrReuse(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instance_stop_failures_total",
				Help:      "Total number of suppressed instance termination failures, by provider",
			},
			[]string{"provider"},
		)).(*prometheus.CounterVec),
		startDuration: registerOrReuse(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "instance_start_duration_seconds",
				Help:      "Time from build to ready for a service instance, by provider",
				Buckets: []float64{
					0.5, // cached image, tiny service
					1,
					2.5,
					5,
					10,
					30,
					60,
					120, // image pull
				},
			},
			[]string{"provider"},
		)).(*prometheus.HistogramVec),
		active: registerOrReuse(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_instances",
				Help:      "Number of service instances currently tracked by a session",
			},
		)).(prometheus.Gauge),
	}
}

// ObserveStart records a successful start of kind that took d.
func (m *Metrics) ObserveStart(kind provider.Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(string(kind)).Inc()
	m.startDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// StartFailed records a failed build or start of kind.
func (m *Metrics) StartFailed(kind provider.Kind) {
	if m == nil {
		return
	}
	m.startFailures.WithLabelValues(string(kind)).Inc()
}

// StopFailed records a suppressed termination failure of kind.
func (m *Metrics) StopFailed(kind provider.Kind) {
	if m == nil {
		return
	}
	m.stopFailures.WithLabelValues(string(kind)).Inc()
}

// SetActive sets the number of tracked instances.
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

// registerOrReuse registers c with reg, returning the already registered
// collector when an identical one exists. Panics on any other failure.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
