// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	DescriptorsTotal *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	JobRunsTotal     *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	DeadLettersQueued prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_messages_total",
				Help: "Channel messages seen by the poller, by handling result.",
			},
			[]string{"result"},
		),
		DescriptorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_descriptors_total",
				Help: "Task descriptors extracted from messages, by outcome.",
			},
			[]string{"outcome"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_transitions_total",
				Help: "Task lifecycle transitions applied, by transition.",
			},
			[]string{"transition"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		JobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_job_runs_total",
				Help: "Scheduled job executions by job and result.",
			},
			[]string{"job", "result"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maestro_job_duration_seconds",
				Help:    "Scheduled job execution duration by job.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		DeadLettersQueued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "maestro_dead_letters_queued",
				Help: "Undelivered notifications awaiting retry.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.MessagesTotal)
	reg.MustRegister(m.DescriptorsTotal)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.JobRunsTotal)
	reg.MustRegister(m.JobDuration)
	reg.MustRegister(m.DeadLettersQueued)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMessage increments the message counter.
func (m *Metrics) RecordMessage(result string) {
	m.MessagesTotal.WithLabelValues(result).Inc()
}

// RecordDescriptor increments the descriptor counter.
func (m *Metrics) RecordDescriptor(outcome string) {
	m.DescriptorsTotal.WithLabelValues(outcome).Inc()
}

// RecordTransition increments the transition counter.
func (m *Metrics) RecordTransition(transition string) {
	m.TransitionsTotal.WithLabelValues(transition).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// RecordJobRun increments the job run counter.
func (m *Metrics) RecordJobRun(job, result string) {
	m.JobRunsTotal.WithLabelValues(job, result).Inc()
}

// ObserveJobDuration records job execution duration.
func (m *Metrics) ObserveJobDuration(job string, seconds float64) {
	m.JobDuration.WithLabelValues(job).Observe(seconds)
}
