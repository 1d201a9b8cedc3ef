package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the worker's Prometheus collectors. Each Server owns its own
// registry so multiple workers in one process (common in tests and in the
// in-process spawn path) never fight over collector registration.
type metrics struct {
	registry     *prometheus.Registry
	objects      prometheus.Gauge
	pendingTasks prometheus.Gauge
	invocations  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tethergo_worker_objects",
			Help: "Number of live objects in the worker pool",
		}),
		pendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tethergo_worker_pending_tasks",
			Help: "Number of accepted asynchronous tasks not yet completed",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tethergo_worker_invocations_total",
			Help: "Total method invocations by class, method, mode and outcome",
		}, []string{"class", "method", "mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tethergo_worker_invocation_duration_seconds",
			Help:    "Method execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"class", "method"}),
	}
	m.registry.MustRegister(m.objects, m.pendingTasks, m.invocations, m.duration)
	return m
}

func (m *metrics) observe(class, method, mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.invocations.WithLabelValues(class, method, mode, outcome).Inc()
	m.duration.WithLabelValues(class, method).Observe(time.Since(start).Seconds())
}
