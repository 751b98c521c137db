package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Query is a single user question bound to a session. Immutable once received.
type Query struct {
	SessionID string
	Text      string
}

// NewQuery builds a Query, minting a session ID when the caller has none.
func NewQuery(sessionID, text string) Query {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return Query{SessionID: sessionID, Text: text}
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a conversation: the user query, an assistant message
// (optionally carrying tool-call requests), or a tool result.
type Turn struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall  // assistant turns that request tools
	CallID    string      // tool turns: ID of the originating call
	ToolName  string      // tool turns
	Result    *ToolResult // tool turns
}

// ConversationState is the working memory for exactly one query. It is owned
// by the loop controller for the duration of processing and discarded after
// the final response is assembled; nothing here is shared across queries.
type ConversationState struct {
	Query      Query
	Turns      []Turn
	Iterations int

	toolTrace []ToolCall
	results   []ToolResult
}

// NewConversationState seeds the state with the user's query turn.
func NewConversationState(q Query) *ConversationState {
	return &ConversationState{
		Query: q,
		Turns: []Turn{{Role: RoleUser, Content: q.Text}},
	}
}

// AppendAssistantToolCalls records an assistant turn that requested tools.
func (s *ConversationState) AppendAssistantToolCalls(content string, calls []ToolCall) {
	s.Turns = append(s.Turns, Turn{Role: RoleAssistant, Content: content, ToolCalls: calls})
}

// AppendToolResult records one tool result. Results are appended strictly in
// invocation order so downstream grounding stays reproducible.
func (s *ConversationState) AppendToolResult(call ToolCall, res ToolResult) {
	s.Turns = append(s.Turns, Turn{
		Role:     RoleTool,
		CallID:   call.ID,
		ToolName: call.Name,
		Result:   &res,
	})
	s.toolTrace = append(s.toolTrace, call)
	s.results = append(s.results, res)
}

// AppendAssistantAnswer records the final assistant answer turn.
func (s *ConversationState) AppendAssistantAnswer(answer string) {
	s.Turns = append(s.Turns, Turn{Role: RoleAssistant, Content: answer})
}

// ToolTrace returns every tool call executed for this query, in order.
func (s *ConversationState) ToolTrace() []ToolCall {
	return s.toolTrace
}

// ToolResults returns every tool result for this query, in invocation order.
func (s *ConversationState) ToolResults() []ToolResult {
	return s.results
}

// RawToolText concatenates the raw textual rendering of every tool result.
// This is the evidence corpus the claim verifier grounds against.
func (s *ConversationState) RawToolText() string {
	var b strings.Builder
	for _, r := range s.results {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.RawText)
	}
	return b.String()
}
