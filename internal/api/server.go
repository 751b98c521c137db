// Package api exposes the HTTP surface: the chat endpoint, health and
// metrics, and the Prometheus scrape handler.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
	"github.com/medrow/clinagent/internal/core/services"
	"github.com/medrow/clinagent/internal/observability"
)

const maxQueryBytes = 64 << 10

// Server hosts the HTTP API around the agent service.
type Server struct {
	logger  *slog.Logger
	agent   *services.AgentService
	audit   ports.AuditStore
	metrics *observability.Metrics
	httpSrv *http.Server
}

// NewServer builds the server and its routes. registry is the Prometheus
// registry backing /metrics; audit may be nil.
func NewServer(
	logger *slog.Logger,
	agent *services.AgentService,
	audit ports.AuditStore,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
	addr string,
) *Server {
	s := &Server{
		logger:  logger,
		agent:   agent,
		audit:   audit,
		metrics: metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/metrics", s.handleAuditMetrics)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	started := time.Now()
	query := domain.NewQuery(req.SessionID, req.Message)
	resp, err := s.agent.HandleQuery(r.Context(), query)
	s.recordMetrics(resp, err, time.Since(started))

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing sensible to write.
			return
		}
		s.logger.Error("query failed", "session_id", query.SessionID, "error", err)
		s.writeError(w, http.StatusGatewayTimeout, "query processing timed out")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuditMetrics reports aggregates from the audit store.
func (s *Server) handleAuditMetrics(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.writeError(w, http.StatusNotFound, "audit store disabled")
		return
	}
	metrics, err := s.audit.Metrics(r.Context())
	if err != nil {
		s.logger.Error("metrics aggregation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "metrics unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) recordMetrics(resp domain.FinalResponse, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	s.metrics.QueryDuration.Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	for _, call := range resp.ToolCalls {
		s.metrics.ToolCallsTotal.WithLabelValues(call.Name).Inc()
	}
	if !resp.Verification.OverallSafe {
		s.metrics.UnsafeResponses.Inc()
	}
	if resp.IterationLimitReached {
		s.metrics.IterationLimitHit.Inc()
	}
	s.metrics.Confidence.Observe(resp.Confidence)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
