package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// metrics is owned by one Server so that several servers (tests, mostly) can
// coexist without colliding in the default registry.
type metrics struct {
	registry     *prometheus.Registry
	statements   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	openTxs      prometheus.Gauge
	rateLimited  prometheus.Counter
	reapedTxs    prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_statements_total",
				Help: "SQL statements executed through the bridge, by outcome.",
			},
			[]string{"outcome", "scope"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_statement_duration_seconds",
				Help:    "Statement latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_transactions_total",
				Help: "Transactions finished through the bridge, by result.",
			},
			[]string{"result"},
		),
		openTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_open_transactions",
			Help: "Transactions currently held open by the bridge.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_rate_limited_total",
			Help: "Requests rejected by admission control.",
		}),
		reapedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_reaped_transactions_total",
			Help: "Idle transactions rolled back by the reaper.",
		}),
	}
	m.registry.MustRegister(
		m.statements,
		m.duration,
		m.transactions,
		m.openTxs,
		m.rateLimited,
		m.reapedTxs,
		collectors.NewGoCollector(),
	)
	return m
}

func scopeOf(txID string) string {
	if txID == "" {
		return "autocommit"
	}
	return "transaction"
}
