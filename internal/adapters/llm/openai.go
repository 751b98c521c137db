package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// OpenAIProvider is a DecisionProvider over any OpenAI-compatible chat
// completion endpoint with native tool calling.
type OpenAIProvider struct {
	logger *slog.Logger
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates the provider. baseURL may be empty for the
// hosted API, or point at a compatible local server.
func NewOpenAIProvider(logger *slog.Logger, apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		logger: logger,
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Decide maps the conversation onto the chat completion API. Tool schemas
// pass through as-is; the wire format and ours are both JSON Schema.
func (p *OpenAIProvider) Decide(ctx context.Context, req ports.DecisionRequest) (domain.Decision, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    buildMessages(req),
		Temperature: 0,
	}
	if !req.ForceFinal {
		chatReq.Tools = buildToolSpecs(req.Tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Decision{}, fmt.Errorf("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return domain.Decision{FinalAnswer: msg.Content}, nil
	}

	calls := make([]domain.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return domain.Decision{}, fmt.Errorf("decode arguments for %s: %w", tc.Function.Name, err)
			}
		}
		calls = append(calls, domain.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	p.logger.Debug("tool calls requested", "provider", p.Name(), "count", len(calls))
	return domain.Decision{ToolCalls: calls}, nil
}

// buildMessages replays the conversation in wire form, keeping tool results
// bound to their originating call IDs.
func buildMessages(req ports.DecisionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.System,
	})

	for _, turn := range req.Turns {
		switch turn.Role {
		case domain.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: turn.Content,
			})
		case domain.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Content,
			}
			for _, call := range turn.ToolCalls {
				argsJSON, _ := json.Marshal(call.Args)
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			messages = append(messages, msg)
		case domain.RoleTool:
			content := ""
			if turn.Result != nil {
				content = turn.Result.RawText
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       turn.ToolName,
				ToolCallID: turn.CallID,
			})
		}
	}

	if req.ForceFinal {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			Content: "You have reached the tool call limit. Provide your best final answer " +
				"using only the information gathered so far.",
		})
	}
	return messages
}

func buildToolSpecs(tools []*domain.Tool) []openai.Tool {
	specs := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return specs
}
