package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
	"github.com/medrow/clinagent/internal/verification"
)

// systemPrompt frames every decision step. Ported rules: real data only,
// disclaimers on medical advice, no diagnoses, privacy, severity flagging,
// refusal of unsafe requests, and explicit multi-step chaining guidance.
const systemPrompt = `You are a knowledgeable healthcare assistant backed by a certified Electronic Health Records system. You help patients and healthcare providers with medical information, appointment scheduling, medication management, and health record queries.

IMPORTANT RULES:
1. Always use the available tools to look up real data. Never make up patient records, medications, or clinical data.
2. For any medical advice, ALWAYS include a disclaimer to consult a healthcare provider.
3. If you are unsure or the data is incomplete, say so clearly and state your confidence level.
4. Never recommend specific treatments or diagnoses. Redirect to professionals.
5. Protect patient privacy. Only share information when appropriately requested.
6. When checking drug interactions, always flag severity levels clearly.
7. If a request seems unsafe (for example dangerous drug combinations or harmful dosages), refuse and explain why.

MULTI-STEP REASONING:
You can and should chain multiple tool calls when a query requires it. Examples:
- "Check John Smith's medications for interactions": first call patient_summary to get the medication list, then call drug_interaction_check with those medications.
- "I need to see a cardiologist next week": first call provider_search with specialty="cardiology", then call appointment_availability with the provider's name.
- "Is my patient safe on their current meds?": call patient_summary for their record, then drug_interaction_check on their medications.
- "What could cause my headache and when can I see a doctor?": call symptom_lookup for possible conditions, then provider_search to find relevant specialists.

Think step by step. After each tool result, decide if you need more information before giving a final answer. Combine results from multiple tools into a coherent response.

You have access to tools that query the clinical FHIR R4 API for real patient data.`

// unavailableAnswer is returned when every decision provider fails.
const unavailableAnswer = "The assistant is temporarily unavailable. Please try again in a moment."

// unavailableDisclaimer accompanies a hard failure. The underlying error
// stays in the logs, never in the user-visible envelope.
const unavailableDisclaimer = "This request could not be processed and no patient data was retrieved or verified."

// loopState labels where the controller is in processing one query. States
// only ever advance; there are no backward transitions within a round.
type loopState string

const (
	stateAwaitingDecision loopState = "awaiting_decision"
	stateExecutingTools   loopState = "executing_tools"
	stateReadyToRespond   loopState = "ready_to_respond"
	stateTerminated       loopState = "terminated"
)

// AgentService drives the decide/execute loop for one query at a time and
// hands the finished answer to the verification pipeline. The service itself
// is stateless across queries; each call owns a fresh ConversationState.
type AgentService struct {
	logger   *slog.Logger
	provider ports.DecisionProvider
	registry *domain.ToolRegistry
	pipeline *verification.Pipeline
	audit    ports.AuditStore

	maxIterations   int
	decisionTimeout time.Duration
	toolTimeout     time.Duration
	now             func() time.Time
}

// NewAgentService wires the loop controller. audit may be nil when
// persistence is disabled.
func NewAgentService(
	logger *slog.Logger,
	provider ports.DecisionProvider,
	registry *domain.ToolRegistry,
	pipeline *verification.Pipeline,
	audit ports.AuditStore,
	maxIterations int,
	decisionTimeout, toolTimeout time.Duration,
) *AgentService {
	return &AgentService{
		logger:          logger,
		provider:        provider,
		registry:        registry,
		pipeline:        pipeline,
		audit:           audit,
		maxIterations:   maxIterations,
		decisionTimeout: decisionTimeout,
		toolTimeout:     toolTimeout,
		now:             time.Now,
	}
}

// HandleQuery runs the full lifecycle for one query: the decide/execute loop,
// then verification, then audit. A decision-step failure degrades to an
// apologetic answer rather than an error; only context cancellation aborts
// with an error, and a cancelled query is never verified or answered.
func (s *AgentService) HandleQuery(ctx context.Context, q domain.Query) (domain.FinalResponse, error) {
	started := s.now()
	state := domain.NewConversationState(q)

	resp, loopErr := s.runLoop(ctx, state)
	if loopErr != nil && (errors.Is(loopErr, context.Canceled) || errors.Is(loopErr, context.DeadlineExceeded)) {
		s.recordAudit(q.SessionID, started, state, domain.FinalResponse{}, loopErr)
		return domain.FinalResponse{}, loopErr
	}

	s.recordAudit(q.SessionID, started, state, resp, loopErr)
	return resp, nil
}

// runLoop is the decide/execute state machine. It returns a complete
// FinalResponse, or a context error when the query was cancelled mid-flight.
func (s *AgentService) runLoop(ctx context.Context, state *domain.ConversationState) (domain.FinalResponse, error) {
	current := stateAwaitingDecision
	limitReached := false

	for current != stateReadyToRespond {
		s.logger.Debug("loop state", "session_id", state.Query.SessionID,
			"state", string(current), "iteration", state.Iterations)
		if err := ctx.Err(); err != nil {
			return domain.FinalResponse{}, err
		}

		forceFinal := state.Iterations >= s.maxIterations
		decision, err := s.decide(ctx, state, forceFinal)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.FinalResponse{}, err
			}
			s.logger.Error("decision step failed", "session_id", state.Query.SessionID,
				"state", string(stateTerminated), "error", err)
			return s.failureResponse(state), &domain.DecisionStepError{Provider: s.provider.Name(), Err: err}
		}

		if decision.IsFinal() {
			state.AppendAssistantAnswer(decision.FinalAnswer)
			limitReached = forceFinal
			current = stateReadyToRespond
			break
		}

		if forceFinal {
			// The provider ignored ForceFinal and asked for tools anyway.
			// Refuse the round and close out with what we have.
			s.logger.Warn("provider requested tools past the iteration cap",
				"session_id", state.Query.SessionID, "provider", s.provider.Name())
			state.AppendAssistantAnswer(unavailableAnswer)
			limitReached = true
			current = stateReadyToRespond
			break
		}

		current = stateExecutingTools
		if err := s.executeRound(ctx, state, decision); err != nil {
			return domain.FinalResponse{}, err
		}
		state.Iterations++
		current = stateAwaitingDecision
	}

	return s.verifyAndAssemble(state, limitReached), nil
}

func (s *AgentService) decide(ctx context.Context, state *domain.ConversationState, forceFinal bool) (domain.Decision, error) {
	dctx, cancel := context.WithTimeout(ctx, s.decisionTimeout)
	defer cancel()

	req := ports.DecisionRequest{
		System:     systemPrompt,
		Turns:      state.Turns,
		ForceFinal: forceFinal,
	}
	if !forceFinal {
		req.Tools = s.registry.List()
	}
	return s.provider.Decide(dctx, req)
}

// executeRound runs every tool call of one decision. Calls within a round
// carry no ordering dependency (the provider sequences dependent calls across
// rounds), so they dispatch concurrently; results are recorded in request
// order regardless of completion order.
func (s *AgentService) executeRound(ctx context.Context, state *domain.ConversationState, decision domain.Decision) error {
	state.AppendAssistantToolCalls("", decision.ToolCalls)

	results := make([]domain.ToolResult, len(decision.ToolCalls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range decision.ToolCalls {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, s.toolTimeout)
			defer cancel()

			res, err := s.registry.Invoke(tctx, call)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// Bad tool name or bad arguments: surface the problem to the
				// model as a result so the next decision round can repair it.
				res = domain.NoDataResult("Tool error: " + err.Error())
				res.CallID = call.ID
			}
			results[i] = res

			s.logger.Info("tool executed",
				"session_id", state.Query.SessionID,
				"tool", call.Name,
				"found", res.Found,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, call := range decision.ToolCalls {
		state.AppendToolResult(call, results[i])
	}
	return nil
}

func (s *AgentService) verifyAndAssemble(state *domain.ConversationState, limitReached bool) domain.FinalResponse {
	answer := ""
	if n := len(state.Turns); n > 0 {
		answer = state.Turns[n-1].Content
	}

	report := s.pipeline.Run(verification.Input{
		Answer:      answer,
		ToolCalls:   state.ToolTrace(),
		ToolResults: state.ToolResults(),
		RawToolText: state.RawToolText(),
	})

	return domain.FinalResponse{
		Answer:                answer,
		SessionID:             state.Query.SessionID,
		Confidence:            report.ConfidenceScoring.Score,
		Disclaimers:           report.Disclaimers,
		Verification:          report,
		ToolCalls:             state.ToolTrace(),
		IterationLimitReached: limitReached,
	}
}

// failureResponse is the envelope for a dead decision step: no verification
// ran, so the report is zero-valued and confidence is zero. The envelope
// carries a fixed disclaimer; error detail is logged, not returned.
func (s *AgentService) failureResponse(state *domain.ConversationState) domain.FinalResponse {
	return domain.FinalResponse{
		Answer:      unavailableAnswer,
		SessionID:   state.Query.SessionID,
		Disclaimers: []string{unavailableDisclaimer},
		ToolCalls:   state.ToolTrace(),
	}
}

func (s *AgentService) recordAudit(sessionID string, started time.Time, state *domain.ConversationState, resp domain.FinalResponse, loopErr error) {
	if s.audit == nil {
		return
	}

	names := make([]string, 0, len(state.ToolTrace()))
	for _, call := range state.ToolTrace() {
		names = append(names, call.Name)
	}
	rec := domain.QueryRecord{
		SessionID:             sessionID,
		LatencyMs:             float64(s.now().Sub(started)) / float64(time.Millisecond),
		ToolNames:             names,
		Iterations:            state.Iterations,
		Confidence:            resp.Confidence,
		OverallSafe:           resp.Verification.OverallSafe,
		IterationLimitReached: resp.IterationLimitReached,
		CreatedAt:             s.now().UTC(),
	}
	if loopErr != nil {
		rec.Error = loopErr.Error()
	}

	// Audit writes never fail a request.
	actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.SaveQueryRecord(actx, rec); err != nil {
		s.logger.Error("audit write failed", "session_id", sessionID, "error", err)
	}
}
