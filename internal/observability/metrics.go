// Package observability exposes Prometheus metrics for the query lifecycle.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide metric set, registered once at startup.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	QueryDuration     prometheus.Histogram
	ToolCallsTotal    *prometheus.CounterVec
	UnsafeResponses   prometheus.Counter
	IterationLimitHit prometheus.Counter
	Confidence        prometheus.Histogram
}

// New registers the metric set on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinagent_queries_total",
			Help: "Queries processed, labeled by outcome (ok, error).",
		}, []string{"outcome"}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinagent_query_duration_seconds",
			Help:    "End-to-end query latency including verification.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinagent_tool_calls_total",
			Help: "Tool invocations, labeled by tool name.",
		}, []string{"tool"}),
		UnsafeResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinagent_unsafe_responses_total",
			Help: "Responses where verification reported overall_safe=false.",
		}),
		IterationLimitHit: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinagent_iteration_limit_total",
			Help: "Queries that hit the tool-call iteration cap.",
		}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinagent_confidence_score",
			Help:    "Verification confidence score distribution.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}
