// Package metrics exposes the Prometheus collectors of the expense services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector on its own registry so tests can create
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	ExpensesSubmitted *prometheus.CounterVec
	StatusChanges     *prometheus.CounterVec
	DashboardLoads    *prometheus.CounterVec
	Anomalies         *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	LedgerWrites      *prometheus.CounterVec
	Logins            *prometheus.CounterVec
	CacheEntries      *prometheus.GaugeVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ExpensesSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_expenses_submitted_total",
			Help: "Expenses submitted by category",
		}, []string{"category"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_status_changes_total",
			Help: "Approval decisions by resulting status",
		}, []string{"status"}),
		DashboardLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_dashboard_loads_total",
			Help: "Dashboard reads by cache result",
		}, []string{"cache"}), // cache: "hit", "miss"
		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_aggregation_anomalies_total",
			Help: "Records skipped or zeroed while aggregating",
		}, []string{"reason"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_events_published_total",
			Help: "Events handed to the broker by type and outcome",
		}, []string{"type", "outcome"}),
		LedgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_ledger_writes_total",
			Help: "Ledger sheet writes by operation and outcome",
		}, []string{"op", "outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expenseflow_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		CacheEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "expenseflow_cache_entries",
			Help: "Entries held by each in-process cache",
		}, []string{"cache"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "expenseflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "code"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// The helpers below accept a nil receiver so callers can run without metrics.

func (m *Metrics) IncSubmitted(category string) {
	if m != nil {
		m.ExpensesSubmitted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncStatusChange(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncDashboard(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.DashboardLoads.WithLabelValues(label).Inc()
}

func (m *Metrics) AddAnomalies(reason string, n int) {
	if m != nil && n > 0 {
		m.Anomalies.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) IncPublished(eventType string, err error) {
	if m != nil {
		m.EventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
	}
}

func (m *Metrics) IncLedgerWrite(op string, err error) {
	if m != nil {
		m.LedgerWrites.WithLabelValues(op, outcome(err)).Inc()
	}
}

func (m *Metrics) IncLogin(err error) {
	if m != nil {
		m.Logins.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) SetCacheEntries(cache string, n int) {
	if m != nil {
		m.CacheEntries.WithLabelValues(cache).Set(float64(n))
	}
}

func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
