// Package observability holds the structured logging setup and
// Prometheus metrics shared by every component.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dbgateway"

// Metrics bundles every counter/histogram the gateway exposes on
// /metrics. Construct once at startup with NewMetrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	SQLRefusalsTotal   *prometheus.CounterVec
	LLMCallsTotal      *prometheus.CounterVec
	LLMLatencySeconds  *prometheus.HistogramVec
	PoolAcquiresTotal  *prometheus.CounterVec
	SchemaRefreshTotal *prometheus.CounterVec
	ExecutionSeconds   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total query requests by outcome",
		}, []string{"outcome"}),

		SQLRefusalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sql_refusals_total",
			Help:      "Total SQL statements refused by the safety validator, by refusal kind",
		}, []string{"kind"}),

		LLMCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total LLM calls by operation and outcome",
		}, []string{"op", "outcome"}),

		LLMLatencySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency by operation",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"op"}),

		PoolAcquiresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_acquires_total",
			Help:      "Total connection pool acquire attempts by database and outcome",
		}, []string{"db", "outcome"}),

		SchemaRefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_refresh_total",
			Help:      "Total schema cache refreshes by database",
		}, []string{"db"}),

		ExecutionSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_execution_duration_seconds",
			Help:      "Query execution latency by database",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"db"}),
	}
}

func (m *Metrics) RecordRequest(outcome string) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSQLRefusal(kind string) {
	m.SQLRefusalsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordLLMCall(op, outcome string, seconds float64) {
	m.LLMCallsTotal.WithLabelValues(op, outcome).Inc()
	m.LLMLatencySeconds.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) RecordPoolAcquire(db, outcome string) {
	m.PoolAcquiresTotal.WithLabelValues(db, outcome).Inc()
}

func (m *Metrics) RecordSchemaRefresh(db string) {
	m.SchemaRefreshTotal.WithLabelValues(db).Inc()
}

func (m *Metrics) RecordExecution(db string, seconds float64) {
	m.ExecutionSeconds.WithLabelValues(db).Observe(seconds)
}
