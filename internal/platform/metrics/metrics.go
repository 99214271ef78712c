package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the publishing workflow.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	runsStartedTotal   prometheus.Counter
	runsSucceededTotal prometheus.Counter
	runsFailedTotal    prometheus.Counter
	uploadsTotal       prometheus.Counter
	schedulerTicks     prometheus.Counter
	schedulerTriggers  prometheus.Counter
	runInProgress      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the workflow service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		runsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_workflow_runs_started_total",
			Help: "Total number of workflow runs started",
		}),
		runsSucceededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_workflow_runs_succeeded_total",
			Help: "Total number of workflow runs that completed all stages",
		}),
		runsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_workflow_runs_failed_total",
			Help: "Total number of workflow runs that aborted or failed",
		}),
		uploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_videos_uploaded_total",
			Help: "Total number of videos published to the upload destination",
		}),
		schedulerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_scheduler_ticks_total",
			Help: "Total number of scheduler wake-ups",
		}),
		schedulerTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_scheduler_triggers_total",
			Help: "Total number of scheduled slot matches that fired the trigger",
		}),
		runInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autopilot_workflow_run_in_progress",
			Help: "1 while a workflow run is active, 0 otherwise",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.runsStartedTotal,
		m.runsSucceededTotal,
		m.runsFailedTotal,
		m.uploadsTotal,
		m.schedulerTicks,
		m.schedulerTriggers,
		m.runInProgress,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRunsStarted increments the runs started counter.
func (m *Metrics) IncRunsStarted() {
	m.runsStartedTotal.Inc()
}

// IncRunsSucceeded increments the successful run counter.
func (m *Metrics) IncRunsSucceeded() {
	m.runsSucceededTotal.Inc()
}

// IncRunsFailed increments the failed/aborted run counter.
func (m *Metrics) IncRunsFailed() {
	m.runsFailedTotal.Inc()
}

// IncUploads increments the published video counter.
func (m *Metrics) IncUploads() {
	m.uploadsTotal.Inc()
}

// IncSchedulerTicks increments the scheduler wake-up counter.
func (m *Metrics) IncSchedulerTicks() {
	m.schedulerTicks.Inc()
}

// IncSchedulerTriggers increments the scheduler trigger counter.
func (m *Metrics) IncSchedulerTriggers() {
	m.schedulerTriggers.Inc()
}

// SetRunInProgress sets the run-in-progress gauge.
func (m *Metrics) SetRunInProgress(active bool) {
	if active {
		m.runInProgress.Set(1)
	} else {
		m.runInProgress.Set(0)
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. whether a run is in progress).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
