package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
	"github.com/medrow/clinagent/internal/core/services"
	"github.com/medrow/clinagent/internal/observability"
	"github.com/medrow/clinagent/internal/verification"
)

type answerProvider struct {
	answer string
}

func (p *answerProvider) Name() string { return "stub" }

func (p *answerProvider) Decide(context.Context, ports.DecisionRequest) (domain.Decision, error) {
	return domain.Decision{FinalAnswer: p.answer}, nil
}

type stubAudit struct {
	metrics domain.AuditMetrics
}

func (a *stubAudit) SaveQueryRecord(context.Context, domain.QueryRecord) error { return nil }
func (a *stubAudit) Metrics(context.Context) (domain.AuditMetrics, error)      { return a.metrics, nil }
func (a *stubAudit) Close() error                                              { return nil }

func testServer(t *testing.T, answer string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := domain.NewToolRegistry()
	pipeline := verification.NewPipeline(logger, 0.5, 0.3)
	agent := services.NewAgentService(
		logger, &answerProvider{answer: answer}, registry, pipeline,
		&stubAudit{}, 10, time.Second, time.Second,
	)
	promReg := prometheus.NewRegistry()
	return NewServer(logger, agent, &stubAudit{metrics: domain.AuditMetrics{TotalRequests: 7}},
		observability.New(promReg), promReg, ":0")
}

func TestChatEndpoint_ReturnsVerifiedResponse(t *testing.T) {
	srv := testServer(t, "Please consult your healthcare provider for specifics.")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat",
		strings.NewReader(`{"message": "hello", "session_id": "s-1"}`))
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.FinalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.NotEmpty(t, resp.Answer)
	assert.NotEmpty(t, resp.Disclaimers)
	assert.True(t, resp.Verification.OverallSafe)
}

func TestChatEndpoint_RejectsEmptyMessage(t *testing.T) {
	srv := testServer(t, "x")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message": "  "}`))
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpoint_RejectsBadJSON(t *testing.T) {
	srv := testServer(t, "x")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, "x")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAuditMetricsEndpoint(t *testing.T) {
	srv := testServer(t, "x")

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var metrics domain.AuditMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 7, metrics.TotalRequests)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := testServer(t, "Please consult your healthcare provider.")

	chat := httptest.NewRequest(http.MethodPost, "/v1/chat",
		strings.NewReader(`{"message": "hello"}`))
	srv.httpSrv.Handler.ServeHTTP(httptest.NewRecorder(), chat)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinagent_queries_total")
}
