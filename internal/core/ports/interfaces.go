package ports

import (
	"context"

	"github.com/medrow/clinagent/internal/core/domain"
)

// DecisionRequest is what the loop controller presents to the decision step
// each round: the conversation so far plus the available tool catalog.
type DecisionRequest struct {
	System string
	Turns  []domain.Turn
	Tools  []*domain.Tool

	// ForceFinal is set when the iteration cap is reached: the provider must
	// produce a final answer from whatever it already knows, tools disabled.
	ForceFinal bool
}

// DecisionProvider abstracts the language-model capability behind exactly
// two outcomes: a tool-call request or a final answer. The controller's
// state machine has no knowledge of which provider or model serves it, so
// provider fallback is a pure implementation swap.
type DecisionProvider interface {
	Name() string
	Decide(ctx context.Context, req DecisionRequest) (domain.Decision, error)
}

// ClinicalSource abstracts the clinical record API (FHIR R4). Consumed only
// by individual tools, never by the core loop directly. Authentication is
// the adapter's problem.
type ClinicalSource interface {
	// Search returns the resource entries of a Bundle search.
	Search(ctx context.Context, resourceType string, params map[string]string) ([]map[string]any, error)

	// Get fetches a single resource by ID.
	Get(ctx context.Context, resourceType, id string) (map[string]any, error)
}

// AuditStore persists per-request observability records.
type AuditStore interface {
	SaveQueryRecord(ctx context.Context, rec domain.QueryRecord) error
	Metrics(ctx context.Context) (domain.AuditMetrics, error)
	Close() error
}
