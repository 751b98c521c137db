package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every recognized runtime option, loaded from environment
// variables (main loads a .env file first when present).
type Config struct {
	// Agent loop
	MaxIterations   int
	DecisionTimeout time.Duration
	ToolTimeout     time.Duration

	// Verification thresholds
	ConfidenceLowThreshold float64
	GroundingPassThreshold float64

	// Decision-step providers, in fallback order. Recognized: "openai",
	// "ollama".
	Providers []string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	OllamaBaseURL string
	OllamaModel   string

	// Clinical data source (FHIR R4)
	FHIRBaseURL      string
	FHIRTokenURL     string
	FHIRClientID     string
	FHIRClientSecret string
	FHIRUsername     string
	FHIRPassword     string

	// HTTP API
	ListenAddr string

	// Audit store
	DBPath string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		MaxIterations:          envInt("CLINAGENT_MAX_ITERATIONS", 10),
		DecisionTimeout:        envDuration("CLINAGENT_DECISION_TIMEOUT", 60*time.Second),
		ToolTimeout:            envDuration("CLINAGENT_TOOL_TIMEOUT", 30*time.Second),
		ConfidenceLowThreshold: envFloat("CLINAGENT_CONFIDENCE_LOW_THRESHOLD", 0.3),
		GroundingPassThreshold: envFloat("CLINAGENT_GROUNDING_PASS_THRESHOLD", 0.5),
		Providers:              envList("CLINAGENT_PROVIDERS", []string{"openai", "ollama"}),
		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:          envStr("OPENAI_BASE_URL", ""),
		OpenAIModel:            envStr("OPENAI_MODEL", "gpt-4o"),
		OllamaBaseURL:          envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:            envStr("OLLAMA_MODEL", "qwen2.5:latest"),
		FHIRBaseURL:            envStr("FHIR_BASE_URL", "https://localhost:9300/apis/default/fhir"),
		FHIRTokenURL:           envStr("FHIR_TOKEN_URL", "https://localhost:9300/oauth2/default/token"),
		FHIRClientID:           os.Getenv("FHIR_CLIENT_ID"),
		FHIRClientSecret:       os.Getenv("FHIR_CLIENT_SECRET"),
		FHIRUsername:           envStr("FHIR_USERNAME", "admin"),
		FHIRPassword:           os.Getenv("FHIR_PASSWORD"),
		ListenAddr:             envStr("CLINAGENT_LISTEN_ADDR", ":8090"),
		DBPath:                 envStr("CLINAGENT_DB_PATH", "clinagent.db"),
	}

	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("CLINAGENT_MAX_ITERATIONS must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.GroundingPassThreshold < 0 || cfg.GroundingPassThreshold > 1 {
		return nil, fmt.Errorf("CLINAGENT_GROUNDING_PASS_THRESHOLD must be in [0,1]")
	}
	if cfg.ConfidenceLowThreshold < 0 || cfg.ConfidenceLowThreshold > 1 {
		return nil, fmt.Errorf("CLINAGENT_CONFIDENCE_LOW_THRESHOLD must be in [0,1]")
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("CLINAGENT_PROVIDERS must name at least one provider")
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
