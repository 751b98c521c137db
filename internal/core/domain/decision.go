package domain

// ToolCall is a concrete tool invocation requested by the decision step.
// Never mutated after creation.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Decision is the outcome of one decision round. Exactly one of the two
// shapes is populated: a set of tool calls to execute, or a final answer.
type Decision struct {
	ToolCalls   []ToolCall
	FinalAnswer string
}

// IsFinal reports whether the decision step chose to answer rather than
// call tools.
func (d Decision) IsFinal() bool {
	return len(d.ToolCalls) == 0
}
