package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("value", openapi3.NewStringSchema())
	params.Required = []string{"value"}

	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Parameters:  params,
		Execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			v, _ := args["value"].(string)
			return ToolResult{Data: map[string]any{"value": v}, RawText: v, Found: true}, nil
		},
	}
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewToolRegistry()

	require.NoError(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(&Tool{}))
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := NewToolRegistry()

	_, err := r.Lookup("missing")
	var notFound *ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
}

func TestRegistry_InvokeValidatesArguments(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool("echo")))

	_, err := r.Invoke(context.Background(), ToolCall{ID: "c1", Name: "echo", Args: map[string]any{}})
	var inputErr *ToolInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "echo", inputErr.Tool)

	_, err = r.Invoke(context.Background(), ToolCall{
		ID: "c2", Name: "echo", Args: map[string]any{"value": 42},
	})
	assert.ErrorAs(t, err, &inputErr)
}

func TestRegistry_InvokeStampsCallID(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool("echo")))

	res, err := r.Invoke(context.Background(), ToolCall{
		ID: "call-9", Name: "echo", Args: map[string]any{"value": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "call-9", res.CallID)
	assert.Equal(t, "hi", res.RawText)
	assert.True(t, res.Found)
}

func TestRegistry_UpstreamFailureBecomesNoData(t *testing.T) {
	r := NewToolRegistry()
	failing := &Tool{
		Name:        "flaky",
		Description: "always fails",
		Execute: func(context.Context, map[string]any) (ToolResult, error) {
			return ToolResult{}, fmt.Errorf("upstream down")
		},
	}
	require.NoError(t, r.Register(failing))

	res, err := r.Invoke(context.Background(), ToolCall{ID: "c1", Name: "flaky"})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.RawText, "upstream down")
	assert.Equal(t, "c1", res.CallID)
}

func TestRegistry_ListSortedByName(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool("zeta")))
	require.NoError(t, r.Register(echoTool("alpha")))

	tools := r.List()
	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[1].Name)
}

func TestToolErrors_Unwrap(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := &ToolUnavailableError{Tool: "patient_summary", Err: base}
	assert.True(t, errors.Is(err, base))

	dsBase := fmt.Errorf("timeout")
	dsErr := &DecisionStepError{Provider: "openai", Err: dsBase}
	assert.True(t, errors.Is(dsErr, dsBase))
}
