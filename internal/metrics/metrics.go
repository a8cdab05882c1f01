package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ctpnav/reconciler/internal/domain"
)

const metricPrefix = "reconciler_"

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics bundles reconciler metrics.
type Metrics struct {
	StatementsTotal    *prometheus.CounterVec
	DiscrepanciesTotal *prometheus.CounterVec
	AccountsTotal      *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	LastRunTimestamp   prometheus.Gauge
}

// New constructs metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		StatementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statements_total",
				Help: "Statement files processed by result",
			},
			[]string{"result"},
		),
		DiscrepanciesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "discrepancies_total",
				Help: "Discrepancies detected by type and severity",
			},
			[]string{"type", "severity"},
		),
		AccountsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "accounts_total",
				Help: "Accounts processed by result",
			},
			[]string{"result"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "run_duration_seconds",
			Help:    "Batch run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_run_timestamp_seconds",
			Help: "Unix time of the last finished batch run",
		}),
	}
	reg.MustRegister(
		m.StatementsTotal,
		m.DiscrepanciesTotal,
		m.AccountsTotal,
		m.RunDuration,
		m.LastRunTimestamp,
	)
	return m
}

// ObserveStatement counts one statement file.
func (m *Metrics) ObserveStatement(result string) {
	if m == nil {
		return
	}
	m.StatementsTotal.WithLabelValues(result).Inc()
}

// ObserveDiscrepancies counts findings by type and severity.
func (m *Metrics) ObserveDiscrepancies(discs []domain.Discrepancy) {
	if m == nil {
		return
	}
	for _, d := range discs {
		m.DiscrepanciesTotal.WithLabelValues(string(d.Type), string(d.Severity)).Inc()
	}
}

// ObserveAccount counts one processed account.
func (m *Metrics) ObserveAccount(result string) {
	if m == nil {
		return
	}
	m.AccountsTotal.WithLabelValues(result).Inc()
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(started, finished time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(finished.Sub(started).Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}
