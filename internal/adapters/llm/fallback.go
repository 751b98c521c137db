package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// FallbackChain tries each provider in configured order and returns the first
// successful decision. Context cancellation stops the chain immediately; any
// other failure moves on to the next provider.
type FallbackChain struct {
	logger    *slog.Logger
	providers []ports.DecisionProvider
}

func NewFallbackChain(logger *slog.Logger, providers ...ports.DecisionProvider) (*FallbackChain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("fallback chain needs at least one provider")
	}
	return &FallbackChain{logger: logger, providers: providers}, nil
}

func (c *FallbackChain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

func (c *FallbackChain) Decide(ctx context.Context, req ports.DecisionRequest) (domain.Decision, error) {
	var lastErr error
	for _, provider := range c.providers {
		decision, err := provider.Decide(ctx, req)
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Decision{}, err
		}
		c.logger.Warn("provider failed, trying next", "provider", provider.Name(), "error", err)
		lastErr = err
	}
	return domain.Decision{}, &domain.DecisionStepError{Provider: c.Name(), Err: lastErr}
}
