package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gkodali-zededa/ai-agent-core/internal/zededa"
)

// zededa-mcp serves the Zededa tool catalogue over MCP stdio. The parent
// agent spawns one per session; logs go to stderr so they never mix with the
// protocol stream on stdout.
func main() {
	var debug bool
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	token := os.Getenv("ZEDEDA_BEARER_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "Error: ZEDEDA_BEARER_TOKEN environment variable not set.")
		os.Exit(1)
	}

	client, err := zededa.NewClient(os.Getenv("ZEDEDA_API_BASE_URL"), token, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create Zededa client: %v\n", err)
		os.Exit(1)
	}

	srv, err := zededa.NewToolServer(client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create tool server: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("zededa tool server starting")
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
