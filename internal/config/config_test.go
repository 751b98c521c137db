package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 60*time.Second, cfg.DecisionTimeout)
	assert.Equal(t, 0.3, cfg.ConfidenceLowThreshold)
	assert.Equal(t, 0.5, cfg.GroundingPassThreshold)
	assert.Equal(t, []string{"openai", "ollama"}, cfg.Providers)
	assert.Equal(t, ":8090", cfg.ListenAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLINAGENT_MAX_ITERATIONS", "3")
	t.Setenv("CLINAGENT_DECISION_TIMEOUT", "5s")
	t.Setenv("CLINAGENT_PROVIDERS", "ollama, openai")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 5*time.Second, cfg.DecisionTimeout)
	assert.Equal(t, []string{"ollama", "openai"}, cfg.Providers)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("CLINAGENT_MAX_ITERATIONS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("CLINAGENT_GROUNDING_PASS_THRESHOLD", "1.5")
	_, err := Load()
	assert.Error(t, err)
}
