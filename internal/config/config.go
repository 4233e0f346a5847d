package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for the conversation server.
const (
	DefaultListenAddr    = ":8000"
	DefaultModel         = "claude-3-5-sonnet-20240620"
	DefaultMaxTokens     = 1000
	DefaultMaxToolRounds = 10
	DefaultAPIBase       = "https://zedcontrol.local.zededa.net"
)

// Config holds application configuration
type Config struct {
	ListenAddr string // Address the websocket server listens on
	Debug      bool

	// Reasoning model
	AnthropicAPIKey string // From ANTHROPIC_API_KEY
	Model           string
	MaxTokens       int
	MaxToolRounds   int // Upper bound on tool rounds within a single turn

	// Tool host (spawned per session over stdio)
	ToolHostCommand string   // Path to the tool host binary
	ToolHostArgs    []string // Extra arguments for the tool host process

	// Zededa API credentials, handed to the tool host via its environment
	ZededaBearerToken string // From ZEDEDA_BEARER_TOKEN
	ZededaAPIBase     string // From ZEDEDA_API_BASE_URL

	// Compliance gate
	GateEnabled bool

	// Transcript database; empty disables transcript recording
	TranscriptPath string
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		Model:           DefaultModel,
		MaxTokens:       DefaultMaxTokens,
		MaxToolRounds:   DefaultMaxToolRounds,
		ToolHostCommand: "zededa-mcp",
		ZededaAPIBase:   DefaultAPIBase,
		GateEnabled:     true,
		TranscriptPath:  "agent.db",
	}
}

// ApplyEnv overlays environment variables onto the config. Credentials are only
// ever sourced from the environment, matching the original deployment; getenv
// may be nil, in which case os.Getenv is used.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := getenv("ZEDEDA_BEARER_TOKEN"); v != "" {
		c.ZededaBearerToken = v
	}
	if v := getenv("ZEDEDA_API_BASE_URL"); v != "" {
		c.ZededaAPIBase = v
	}
	if v := getenv("AGENT_MAX_TOOL_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxToolRounds = n
		}
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if c.ZededaBearerToken == "" {
		return fmt.Errorf("ZEDEDA_BEARER_TOKEN is not set")
	}
	if c.ToolHostCommand == "" {
		return fmt.Errorf("tool host command is required")
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("max tool rounds must be positive, got %d", c.MaxToolRounds)
	}
	return nil
}
