package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// OllamaProvider is a DecisionProvider over a local Ollama instance. Ollama's
// generate endpoint has no native tool calling, so tool use is prompted in
// ReAct form (Thought / Action / Action Input / Final Answer) and parsed back
// out of the raw completion.
type OllamaProvider struct {
	logger  *slog.Logger
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(logger *slog.Logger, baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		logger:  logger,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Decide renders the conversation as a ReAct transcript, runs one completion,
// and parses the action or final answer out of the response. At most one tool
// call comes back per round.
func (p *OllamaProvider) Decide(ctx context.Context, req ports.DecisionRequest) (domain.Decision, error) {
	prompt := buildReActPrompt(req)

	text, err := p.generate(ctx, prompt)
	if err != nil {
		return domain.Decision{}, err
	}

	decision := parseReActResponse(text, req.ForceFinal)
	if decision.IsFinal() {
		p.logger.Debug("final answer parsed", "provider", p.Name())
	} else {
		p.logger.Debug("tool call parsed", "provider", p.Name(), "tool", decision.ToolCalls[0].Name)
	}
	return decision, nil
}

func (p *OllamaProvider) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: p.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return genResp.Response, nil
}

// buildReActPrompt flattens the system prompt, tool catalog, and conversation
// into a single transcript. Tool results render as Observation lines.
func buildReActPrompt(req ports.DecisionRequest) string {
	var b strings.Builder
	b.WriteString(req.System)
	b.WriteString("\n\n")

	if req.ForceFinal {
		b.WriteString("You have reached the tool call limit. Tools are no longer available. " +
			"Respond with 'Final Answer:' followed by your best answer from the information gathered so far.\n\n")
	} else {
		b.WriteString(`You use the ReAct pattern: Thought, then Action, then Observation, repeated until you can answer.

FORMAT (tool call):
Thought: <reasoning>
Action: <EXACT tool name from the list below>
Action Input: <JSON params on one line>

FORMAT (direct answer):
Thought: <reasoning>
Final Answer: <response>

RULES:
1. Always start with "Thought:"
2. Use the EXACT tool name from the Available Tools list. Do NOT invent tool names.
3. Action Input must be valid JSON on one line.
4. One Action per response. After the Observation arrives you may act again.

`)
		b.WriteString(formatToolCatalog(req.Tools))
		b.WriteString("\n")
	}

	for _, turn := range req.Turns {
		switch turn.Role {
		case domain.RoleUser:
			b.WriteString("User: " + turn.Content + "\n")
		case domain.RoleAssistant:
			if len(turn.ToolCalls) > 0 {
				for _, call := range turn.ToolCalls {
					args, _ := json.Marshal(call.Args)
					b.WriteString("Action: " + call.Name + "\n")
					b.WriteString("Action Input: " + string(args) + "\n")
				}
			} else if turn.Content != "" {
				b.WriteString("Assistant: " + turn.Content + "\n")
			}
		case domain.RoleTool:
			if turn.Result != nil {
				b.WriteString("Observation: " + turn.Result.RawText + "\n")
			}
		}
	}

	b.WriteString("\nRespond now:\n")
	return b.String()
}

func formatToolCatalog(tools []*domain.Tool) string {
	var b strings.Builder
	b.WriteString("Available Tools:\n")
	for _, tool := range tools {
		b.WriteString("- " + tool.Name + ": " + tool.Description)
		if tool.Parameters != nil && len(tool.Parameters.Properties) > 0 {
			names := make([]string, 0, len(tool.Parameters.Properties))
			for name := range tool.Parameters.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			b.WriteString(" | params: " + strings.Join(names, ", "))
			if len(tool.Parameters.Required) > 0 {
				b.WriteString(" | required: " + strings.Join(tool.Parameters.Required, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	finalAnswerRe = regexp.MustCompile(`(?is)Final\s*Answer:\s*(.*)`)
	actionRe      = regexp.MustCompile(`(?i)Action:\s*([a-z][a-z0-9_]*)`)
	actionInputRe = regexp.MustCompile(`(?i)Action\s*Input:\s*`)
)

// parseReActResponse extracts either a final answer or a single tool call.
// Unparseable output falls back to treating the whole response as the answer,
// which keeps a rambling model from wedging the loop.
func parseReActResponse(text string, forceFinal bool) domain.Decision {
	if m := finalAnswerRe.FindStringSubmatch(text); len(m) > 1 {
		return domain.Decision{FinalAnswer: strings.TrimSpace(m[1])}
	}

	if !forceFinal {
		if m := actionRe.FindStringSubmatch(text); len(m) > 1 {
			return domain.Decision{ToolCalls: []domain.ToolCall{{
				ID:   "call_" + uuid.NewString(),
				Name: strings.TrimSpace(m[1]),
				Args: extractActionInput(text),
			}}}
		}
	}

	return domain.Decision{FinalAnswer: strings.TrimSpace(text)}
}

// extractActionInput pulls the JSON object after "Action Input:" using
// brace-depth counting so nested objects survive.
func extractActionInput(text string) map[string]any {
	loc := actionInputRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	rest := text[loc[1]:]
	start := strings.Index(rest, "{")
	if start < 0 {
		return nil
	}

	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(rest); i++ {
		c := rest[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inStr:
			escaped = true
		case c == '"':
			inStr = !inStr
		case c == '{' && !inStr:
			depth++
		case c == '}' && !inStr:
			depth--
			if depth == 0 {
				var args map[string]any
				if err := json.Unmarshal([]byte(rest[start:i+1]), &args); err != nil {
					return nil
				}
				return args
			}
		}
	}
	return nil
}
