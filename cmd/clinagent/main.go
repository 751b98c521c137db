package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/medrow/clinagent/internal/adapters/duckdb"
	"github.com/medrow/clinagent/internal/adapters/fhir"
	"github.com/medrow/clinagent/internal/adapters/llm"
	"github.com/medrow/clinagent/internal/api"
	"github.com/medrow/clinagent/internal/config"
	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
	"github.com/medrow/clinagent/internal/core/services"
	"github.com/medrow/clinagent/internal/observability"
	"github.com/medrow/clinagent/internal/verification"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting clinagent")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	// .env is optional; the environment wins either way.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Audit store
	audit, err := duckdb.NewRepository(logger, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init audit store: %w", err)
	}
	defer audit.Close()

	// Clinical record source
	source := fhir.NewClient(logger, fhir.Options{
		BaseURL:            cfg.FHIRBaseURL,
		TokenURL:           cfg.FHIRTokenURL,
		ClientID:           cfg.FHIRClientID,
		ClientSecret:       cfg.FHIRClientSecret,
		Username:           cfg.FHIRUsername,
		Password:           cfg.FHIRPassword,
		InsecureSkipVerify: true,
	})

	// Tool catalog
	registry := domain.NewToolRegistry()
	if err := services.RegisterClinicalTools(registry, source); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	// Decision providers in configured fallback order
	provider, err := buildProvider(logger, cfg)
	if err != nil {
		return err
	}
	logger.Info("decision provider ready", "provider", provider.Name())

	pipeline := verification.NewPipeline(logger, cfg.GroundingPassThreshold, cfg.ConfidenceLowThreshold)
	agent := services.NewAgentService(
		logger, provider, registry, pipeline, audit,
		cfg.MaxIterations, cfg.DecisionTimeout, cfg.ToolTimeout,
	)

	promRegistry := prometheus.NewRegistry()
	metrics := observability.New(promRegistry)

	server := api.NewServer(logger, agent, audit, metrics, promRegistry, cfg.ListenAddr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildProvider assembles the decision step from the configured provider
// names. Multiple names become a fallback chain in order.
func buildProvider(logger *slog.Logger, cfg *config.Config) (ports.DecisionProvider, error) {
	var providers []ports.DecisionProvider
	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			providers = append(providers,
				llm.NewOpenAIProvider(logger, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
		case "ollama":
			providers = append(providers,
				llm.NewOllamaProvider(logger, cfg.OllamaBaseURL, cfg.OllamaModel))
		default:
			return nil, fmt.Errorf("unknown provider %q in CLINAGENT_PROVIDERS", name)
		}
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return llm.NewFallbackChain(logger, providers...)
}
