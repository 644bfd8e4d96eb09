package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business Metrics
	SMSSendTotal       *prometheus.CounterVec
	EntriesConfigured  prometheus.Gauge
	EntryCreationErrs  *prometheus.CounterVec
	StatusSyncTotal    *prometheus.CounterVec
	StatusSyncDuration prometheus.Histogram
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freesms_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freesms_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),

		SMSSendTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freesms_sms_send_total",
				Help: "Total number of SMS send attempts by outcome",
			},
			[]string{"username", "outcome"},
		),
		EntriesConfigured: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "freesms_entries_configured",
				Help: "Number of accounts currently set up",
			},
		),
		EntryCreationErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freesms_entry_creation_errors_total",
				Help: "Total number of rejected account creations",
			},
			[]string{"reason"},
		),
		StatusSyncTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freesms_status_sync_total",
				Help: "Total number of status snapshots written to the cache",
			},
			[]string{"status"},
		),
		StatusSyncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "freesms_status_sync_duration_seconds",
				Help:    "Duration of a full status sync in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func (m *Metrics) RecordEntryCreationError(reason string) {
	m.EntryCreationErrs.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetEntriesConfigured(n int) {
	m.EntriesConfigured.Set(float64(n))
}

func (m *Metrics) RecordStatusSync(written, failed int, duration time.Duration) {
	m.StatusSyncTotal.WithLabelValues("ok").Add(float64(written))
	m.StatusSyncTotal.WithLabelValues("error").Add(float64(failed))
	m.StatusSyncDuration.Observe(duration.Seconds())
}

// SendObserver counts the results of one account.
type SendObserver struct {
	m        *Metrics
	username string
}

func (m *Metrics) ForAccount(username string) *SendObserver {
	return &SendObserver{m: m, username: username}
}

func (o *SendObserver) Observe(res model.Result) {
	o.m.SMSSendTotal.WithLabelValues(o.username, string(res.Outcome)).Inc()
}
