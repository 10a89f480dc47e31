// Package prom implements the observability hooks on top of Prometheus.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/placeskit/pkg/observability"
)

// Metrics records fetch and quota events as Prometheus series.
// It implements both [observability.FetchHooks] and [observability.QuotaHooks].
type Metrics struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	quotaUsed       prometheus.Gauge
	quotaLimit      prometheus.Gauge
	quotaRefused    prometheus.Counter
}

// New registers the placeskit collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "placeskit_fetch_attempts_total",
			Help: "HTTP attempts that completed, by host, status code and API status",
		}, []string{"host", "code", "api_status"}),
		attemptDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placeskit_fetch_attempt_duration_seconds",
			Help:    "Duration of completed HTTP attempts",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		transportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "placeskit_fetch_transport_errors_total",
			Help: "HTTP exchanges that failed before a response arrived",
		}, []string{"host"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "placeskit_fetches_total",
			Help: "Completed fetch calls by outcome",
		}, []string{"host", "outcome"}),
		quotaUsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "placeskit_quota_used",
			Help: "Requests counted against today's quota",
		}),
		quotaLimit: f.NewGauge(prometheus.GaugeOpts{
			Name: "placeskit_quota_limit",
			Help: "Daily request ceiling",
		}),
		quotaRefused: f.NewCounter(prometheus.CounterOpts{
			Name: "placeskit_quota_refused_total",
			Help: "Requests refused because the daily ceiling was reached",
		}),
	}
}

func (m *Metrics) OnAttempt(_ context.Context, host string, _ int, statusCode int, apiStatus string, d time.Duration) {
	m.attempts.WithLabelValues(host, statusLabel(statusCode), apiStatus).Inc()
	m.attemptDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnTransportError(_ context.Context, host string, _ error) {
	m.transportErrors.WithLabelValues(host).Inc()
}

func (m *Metrics) OnComplete(_ context.Context, host string, _ int, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.fetches.WithLabelValues(host, outcome).Inc()
}

func (m *Metrics) OnIncrement(_ context.Context, _ string, count, limit int) {
	m.quotaUsed.Set(float64(count))
	m.quotaLimit.Set(float64(limit))
}

func (m *Metrics) OnExhausted(_ context.Context, _ string, count, limit int) {
	m.quotaRefused.Inc()
	m.quotaUsed.Set(float64(count))
	m.quotaLimit.Set(float64(limit))
}

func statusLabel(code int) string {
	if code <= 0 {
		return "none"
	}
	return strconv.Itoa(code)
}

// Ensure Metrics implements both hook interfaces.
var (
	_ observability.FetchHooks = (*Metrics)(nil)
	_ observability.QuotaHooks = (*Metrics)(nil)
)
