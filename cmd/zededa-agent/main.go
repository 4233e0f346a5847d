package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
	"github.com/gkodali-zededa/ai-agent-core/internal/config"
	"github.com/gkodali-zededa/ai-agent-core/internal/guard"
	"github.com/gkodali-zededa/ai-agent-core/internal/mcp"
	"github.com/gkodali-zededa/ai-agent-core/internal/orchestrator"
	"github.com/gkodali-zededa/ai-agent-core/internal/server"
	"github.com/gkodali-zededa/ai-agent-core/internal/telemetry"
	"github.com/gkodali-zededa/ai-agent-core/internal/transcript"
)

func main() {
	cfg := config.Default()
	var toolHostArgs string

	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Address to listen on")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Reasoning model identifier")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Maximum tokens per model reply")
	flag.IntVar(&cfg.MaxToolRounds, "max-tool-rounds", cfg.MaxToolRounds, "Maximum tool rounds per turn")
	flag.StringVar(&cfg.ToolHostCommand, "tool-host", cfg.ToolHostCommand, "Path to the tool host binary")
	flag.StringVar(&toolHostArgs, "tool-host-args", "", "Comma-separated arguments for the tool host")
	flag.BoolVar(&cfg.GateEnabled, "gate", cfg.GateEnabled, "Enable the compliance gate")
	flag.StringVar(&cfg.TranscriptPath, "transcript", cfg.TranscriptPath, "Transcript database path (empty disables)")
	flag.Parse()

	if toolHostArgs != "" {
		cfg.ToolHostArgs = strings.Split(toolHostArgs, ",")
	}

	cfg.ApplyEnv(nil)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	model, err := backend.NewClient(cfg.AnthropicAPIKey, "", cfg.Model, cfg.MaxTokens)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	var gate server.Gatekeeper
	if cfg.GateEnabled {
		gate = guard.New(model, logger)
	}

	var recorder server.TurnRecorder
	if cfg.TranscriptPath != "" {
		rec, err := transcript.Open(cfg.TranscriptPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer rec.Close()
		recorder = rec
	}

	srv, err := server.New(server.Options{
		Gate:     gate,
		Recorder: recorder,
		NewToolHost: func() (mcp.ToolHost, error) {
			env := []string{
				"ZEDEDA_BEARER_TOKEN=" + cfg.ZededaBearerToken,
				"ZEDEDA_API_BASE_URL=" + cfg.ZededaAPIBase,
			}
			return mcp.NewStdioHost(cfg.ToolHostCommand, cfg.ToolHostArgs, env, logger)
		},
		NewTurnRunner: func(host mcp.ToolHost) server.TurnRunner {
			return orchestrator.New(model, host, cfg.MaxToolRounds, logger)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting agent", "addr", cfg.ListenAddr, "model", cfg.Model,
		"gate_enabled", cfg.GateEnabled, "tool_host", cfg.ToolHostCommand)

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
