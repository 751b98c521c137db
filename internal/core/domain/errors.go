package domain

import "fmt"

// ToolNotFoundError is returned when the decision step requests a tool name
// that is not in the registry. Recoverable: the loop feeds the error text
// back to the decision step so it can pick a real tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ToolInputError is returned when a tool call's arguments fail schema
// validation. Recoverable: the loop converts it into a model-visible error
// message instead of crashing.
type ToolInputError struct {
	Tool   string
	Reason string
}

func (e *ToolInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %s: %s", e.Tool, e.Reason)
}

// ToolUnavailableError marks a data-source failure (timeout, unreachable,
// malformed upstream response). The registry converts it into an empty
// ToolResult so verification can score the missing data instead of crashing.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("tool %s unavailable: %v", e.Tool, e.Err)
}

func (e *ToolUnavailableError) Unwrap() error { return e.Err }

// DecisionStepError means the language-model capability was unreachable or
// returned something unusable. After the provider fallback chain is
// exhausted this escalates to a hard failure response with no verification.
type DecisionStepError struct {
	Provider string
	Err      error
}

func (e *DecisionStepError) Error() string {
	return fmt.Sprintf("decision step failed (provider %s): %v", e.Provider, e.Err)
}

func (e *DecisionStepError) Unwrap() error { return e.Err }
