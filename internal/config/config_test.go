package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultMaxToolRounds, cfg.MaxToolRounds)
	assert.Equal(t, DefaultAPIBase, cfg.ZededaAPIBase)
	assert.True(t, cfg.GateEnabled)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ANTHROPIC_API_KEY":     "sk-test",
		"ZEDEDA_BEARER_TOKEN":   "token-123",
		"ZEDEDA_API_BASE_URL":   "https://zedcontrol.example.com",
		"AGENT_MAX_TOOL_ROUNDS": "5",
	}

	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.Equal(t, "token-123", cfg.ZededaBearerToken)
	assert.Equal(t, "https://zedcontrol.example.com", cfg.ZededaAPIBase)
	assert.Equal(t, 5, cfg.MaxToolRounds)
}

func TestApplyEnvIgnoresEmptyAndInvalid(t *testing.T) {
	env := map[string]string{
		"AGENT_MAX_TOOL_ROUNDS": "not-a-number",
	}

	cfg := Default()
	cfg.AnthropicAPIKey = "preset"
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "preset", cfg.AnthropicAPIKey)
	assert.Equal(t, DefaultMaxToolRounds, cfg.MaxToolRounds)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.AnthropicAPIKey = "sk-test"
	valid.ZededaBearerToken = "token"

	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing anthropic key", func(c *Config) { c.AnthropicAPIKey = "" }},
		{"missing bearer token", func(c *Config) { c.ZededaBearerToken = "" }},
		{"missing tool host command", func(c *Config) { c.ToolHostCommand = "" }},
		{"non-positive tool rounds", func(c *Config) { c.MaxToolRounds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
