package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

type stubProvider struct {
	name     string
	decision domain.Decision
	err      error
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Decide(context.Context, ports.DecisionRequest) (domain.Decision, error) {
	p.calls++
	return p.decision, p.err
}

func TestFallbackChain_RequiresProviders(t *testing.T) {
	_, err := NewFallbackChain(discardLogger())
	assert.Error(t, err)
}

func TestFallbackChain_FirstSuccessWins(t *testing.T) {
	first := &stubProvider{name: "a", decision: domain.Decision{FinalAnswer: "from a"}}
	second := &stubProvider{name: "b", decision: domain.Decision{FinalAnswer: "from b"}}
	chain, err := NewFallbackChain(discardLogger(), first, second)
	require.NoError(t, err)

	d, err := chain.Decide(context.Background(), ports.DecisionRequest{})

	require.NoError(t, err)
	assert.Equal(t, "from a", d.FinalAnswer)
	assert.Zero(t, second.calls)
}

func TestFallbackChain_MovesPastFailure(t *testing.T) {
	first := &stubProvider{name: "a", err: fmt.Errorf("down")}
	second := &stubProvider{name: "b", decision: domain.Decision{FinalAnswer: "from b"}}
	chain, err := NewFallbackChain(discardLogger(), first, second)
	require.NoError(t, err)

	d, err := chain.Decide(context.Background(), ports.DecisionRequest{})

	require.NoError(t, err)
	assert.Equal(t, "from b", d.FinalAnswer)
	assert.Equal(t, 1, first.calls)
}

func TestFallbackChain_ExhaustionReturnsDecisionStepError(t *testing.T) {
	first := &stubProvider{name: "a", err: fmt.Errorf("down")}
	second := &stubProvider{name: "b", err: fmt.Errorf("also down")}
	chain, err := NewFallbackChain(discardLogger(), first, second)
	require.NoError(t, err)

	_, err = chain.Decide(context.Background(), ports.DecisionRequest{})

	var stepErr *domain.DecisionStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "a>b", stepErr.Provider)
}

func TestFallbackChain_CancellationStopsChain(t *testing.T) {
	first := &stubProvider{name: "a", err: context.Canceled}
	second := &stubProvider{name: "b", decision: domain.Decision{FinalAnswer: "never"}}
	chain, err := NewFallbackChain(discardLogger(), first, second)
	require.NoError(t, err)

	_, err = chain.Decide(context.Background(), ports.DecisionRequest{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, second.calls)
}
