package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ToolExecutor runs a tool against already-validated arguments.
type ToolExecutor func(ctx context.Context, args map[string]any) (ToolResult, error)

// Tool is a deterministic, schema-typed callable available to the agent loop.
type Tool struct {
	Name        string
	Description string
	// Parameters is the input schema. Arguments are validated against it
	// before the executor runs.
	Parameters *openapi3.Schema
	Execute    ToolExecutor
}

// ToolResult is the structured output of one tool invocation. RawText is the
// textual rendering the claim verifier grounds against. Found=false marks an
// explicit "no data" result (upstream failure, empty lookup); verification
// scores it as a completeness penalty rather than an error.
type ToolResult struct {
	CallID  string
	Data    map[string]any
	RawText string
	Found   bool
}

// NoDataResult builds the canonical empty result for a failed invocation.
func NoDataResult(reason string) ToolResult {
	return ToolResult{
		Data:    map[string]any{"error": reason},
		RawText: "No data available: " + reason,
		Found:   false,
	}
}

// ToolRegistry is the fixed catalog of callable tools. Registered once at
// process start and immutable thereafter, so concurrent queries can share it
// without locking.
type ToolRegistry struct {
	tools map[string]*Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Names must be unique and non-empty.
func (r *ToolRegistry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Lookup returns the tool by name or a ToolNotFoundError.
func (r *ToolRegistry) Lookup(name string) (*Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &ToolNotFoundError{Name: name}
	}
	return tool, nil
}

// Invoke validates the call's arguments against the tool schema, then runs
// the executor. Bad arguments return a ToolInputError for the caller to feed
// back to the decision step. Upstream failures come back as an explicit
// "no data" ToolResult, never as an error that would kill the loop.
func (r *ToolRegistry) Invoke(ctx context.Context, call ToolCall) (ToolResult, error) {
	tool, err := r.Lookup(call.Name)
	if err != nil {
		return ToolResult{}, err
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	if tool.Parameters != nil {
		if err := tool.Parameters.VisitJSON(args); err != nil {
			return ToolResult{}, &ToolInputError{Tool: call.Name, Reason: err.Error()}
		}
	}

	res, err := tool.Execute(ctx, args)
	if err != nil {
		var inputErr *ToolInputError
		if errors.As(err, &inputErr) {
			return ToolResult{}, err
		}
		res = NoDataResult(err.Error())
	}
	res.CallID = call.ID
	return res, nil
}

// List returns all tools sorted by name for deterministic prompts and specs.
func (r *ToolRegistry) List() []*Tool {
	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// FormatForPrompt renders a compact tool catalog for prompt-based providers.
func (r *ToolRegistry) FormatForPrompt() string {
	var b strings.Builder
	b.WriteString("Available Tools:\n")
	for _, tool := range r.List() {
		b.WriteString("- " + tool.Name + ": " + tool.Description)
		if tool.Parameters != nil && len(tool.Parameters.Properties) > 0 {
			names := make([]string, 0, len(tool.Parameters.Properties))
			for pName := range tool.Parameters.Properties {
				names = append(names, pName)
			}
			sort.Strings(names)
			parts := make([]string, 0, len(names))
			for _, pName := range names {
				pType := "any"
				if ref := tool.Parameters.Properties[pName]; ref != nil && ref.Value != nil &&
					ref.Value.Type != nil && len(*ref.Value.Type) > 0 {
					pType = (*ref.Value.Type)[0]
				}
				parts = append(parts, pName+":"+pType)
			}
			b.WriteString(" | params: {" + strings.Join(parts, ", ") + "}")
			if len(tool.Parameters.Required) > 0 {
				b.WriteString(" | required: " + strings.Join(tool.Parameters.Required, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
