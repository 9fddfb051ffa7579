// Package metrics defines the Prometheus metrics of one client instance.
//
// Every instance owns its registry so parallel tests and multiple clients in one
// process never collide. Metric names carry the rewine_client_ prefix.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Refresh results.
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultTransient = "transient"
	ResultNoToken   = "no_token"
)

type Metrics struct {
	registry *prometheus.Registry

	// RefreshesTotal counts refresh exchanges by result.
	RefreshesTotal *prometheus.CounterVec
	// RefreshWaitersTotal counts callers that joined an in-flight refresh.
	RefreshWaitersTotal prometheus.Counter
	// RefreshDurationSeconds times refresh exchanges.
	RefreshDurationSeconds prometheus.Histogram
	// RetriesTotal counts requests replayed after a 401.
	RetriesTotal *prometheus.CounterVec
	// ExpiriesTotal counts session expiry events by source.
	ExpiriesTotal *prometheus.CounterVec
	// BootstrapTotal counts bootstrap outcomes.
	BootstrapTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_client_refreshes_total",
			Help: "Refresh token exchanges by result.",
		}, []string{"result"}),
		RefreshWaitersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewine_client_refresh_waiters_total",
			Help: "Callers that waited on an in-flight refresh instead of starting one.",
		}),
		RefreshDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewine_client_refresh_duration_seconds",
			Help:    "Duration of refresh token exchanges in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_client_retries_total",
			Help: "Requests replayed after a 401, by whether a refresh was needed.",
		}, []string{"kind"}),
		ExpiriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_client_session_expiries_total",
			Help: "Session expiry events by source.",
		}, []string{"source"}),
		BootstrapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_client_bootstrap_total",
			Help: "Bootstrap outcomes.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.RefreshesTotal,
		m.RefreshWaitersTotal,
		m.RefreshDurationSeconds,
		m.RetriesTotal,
		m.ExpiriesTotal,
		m.BootstrapTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves this instance's metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(result).Inc()
	m.RefreshDurationSeconds.Observe(d.Seconds())
}

func (m *Metrics) RecordWaiter() {
	if m == nil {
		return
	}
	m.RefreshWaitersTotal.Inc()
}

func (m *Metrics) RecordRetry(kind string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordExpiry(source string) {
	if m == nil {
		return
	}
	m.ExpiriesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.BootstrapTotal.WithLabelValues(outcome).Inc()
}

// CounterValue reads one series of a counter vector.
func CounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func Value(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
