package domain

import "time"

// QueryRecord is the per-request observability record. It deliberately keeps
// no conversation content: only timing, tool usage, and verification
// outcomes are retained across requests.
type QueryRecord struct {
	SessionID             string
	LatencyMs             float64
	ToolNames             []string
	Iterations            int
	Confidence            float64
	OverallSafe           bool
	IterationLimitReached bool
	Error                 string
	CreatedAt             time.Time
}

// AuditMetrics aggregates the query log.
type AuditMetrics struct {
	TotalRequests   int            `json:"total_requests"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	AvgConfidence   float64        `json:"avg_confidence"`
	UnsafeResponses int            `json:"unsafe_responses"`
	LimitReached    int            `json:"iteration_limit_reached"`
	ToolCallCounts  map[string]int `json:"tool_call_counts"`
	ErroredRequests int            `json:"errored_requests"`
}
