// Package metrics exposes login attempt counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the port interface for recording metrics.
type Recorder interface {
	// RecordAttempt records a finished attempt with its outcome kind.
	RecordAttempt(outcome string, duration time.Duration)
	// RecordRetry records a scheduled retry.
	RecordRetry()
	// SetLoggedIn records whether the portal session is active.
	SetLoggedIn(loggedIn bool)
}

// Noop records nothing.
type Noop struct{}

// NewNoop creates a no-op recorder.
func NewNoop() *Noop {
	return &Noop{}
}

// RecordAttempt is a no-op.
func (Noop) RecordAttempt(outcome string, duration time.Duration) {}

// RecordRetry is a no-op.
func (Noop) RecordRetry() {}

// SetLoggedIn is a no-op.
func (Noop) SetLoggedIn(loggedIn bool) {}

// PrometheusRecorder records metrics using Prometheus.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	attemptsTotal   *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	retriesTotal    prometheus.Counter
	loggedIn        prometheus.Gauge
	lastSuccess     prometheus.Gauge
	now             func() time.Time
}

// NewPrometheusRecorder creates a recorder on its own registry, which
// also carries the Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewPrometheusRecorderWithRegistry(reg)
}

// NewPrometheusRecorderWithRegistry creates a recorder registering its
// collectors on reg.
func NewPrometheusRecorderWithRegistry(reg *prometheus.Registry) *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: reg,
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_login_attempt_duration_seconds",
			Help:    "Duration of login attempts",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60},
		}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_login_retries_total",
			Help: "Total retries scheduled after failed attempts",
		}),
		loggedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_login_logged_in",
			Help: "1 while the portal session is active",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_login_last_success_timestamp_seconds",
			Help: "Unix time of the last accepted login",
		}),
		now: time.Now,
	}

	reg.MustRegister(
		p.attemptsTotal,
		p.attemptDuration,
		p.retriesTotal,
		p.loggedIn,
		p.lastSuccess,
	)
	return p
}

// RecordAttempt records a finished attempt.
func (p *PrometheusRecorder) RecordAttempt(outcome string, duration time.Duration) {
	p.attemptsTotal.WithLabelValues(outcome).Inc()
	p.attemptDuration.Observe(duration.Seconds())
}

// RecordRetry records a scheduled retry.
func (p *PrometheusRecorder) RecordRetry() {
	p.retriesTotal.Inc()
}

// SetLoggedIn records the session state.
func (p *PrometheusRecorder) SetLoggedIn(loggedIn bool) {
	if loggedIn {
		p.loggedIn.Set(1)
		p.lastSuccess.Set(float64(p.now().Unix()))
		return
	}
	p.loggedIn.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
