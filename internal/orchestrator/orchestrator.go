package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
	"github.com/gkodali-zededa/ai-agent-core/internal/mcp"
	"github.com/gkodali-zededa/ai-agent-core/internal/session"
)

// TooManyRoundsError indicates a turn requested more tool rounds than the
// configured bound allows.
type TooManyRoundsError struct {
	Limit int
}

func (e *TooManyRoundsError) Error() string {
	return fmt.Sprintf("turn exceeded the limit of %d tool rounds", e.Limit)
}

// Orchestrator drives one conversation turn at a time: it relays the session
// history to the reasoning model, executes the tool calls the model requests,
// and commits the grown history back to the session once the model stops
// asking for tools.
type Orchestrator struct {
	model         backend.ModelClient
	host          mcp.ToolHost
	maxToolRounds int
	logger        *slog.Logger
	tracer        trace.Tracer
	meter         metric.Meter
}

// New creates an orchestrator bound to one model client and one tool host.
// Tool hosts are per session; build one orchestrator per connection.
func New(model backend.ModelClient, host mcp.ToolHost, maxToolRounds int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		model:         model,
		host:          host,
		maxToolRounds: maxToolRounds,
		logger:        logger.With("component", "orchestrator"),
		tracer:        otel.Tracer("orchestrator"),
		meter:         otel.Meter("orchestrator"),
	}
}

// RunTurn processes one user message to completion and returns the text to
// send back. The session history is committed only when the whole turn
// succeeds; on any error the history is exactly as it was before the call.
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, userText string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "turn")
	defer span.End()

	start := time.Now()

	working := sess.Snapshot()
	working = append(working, backend.UserText(userText))

	hostTools, err := o.host.ListTools(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tools: %w", err)
	}
	catalogue := catalogueFor(hostTools)

	var output []string
	toolRounds := 0
	for {
		reply, err := o.model.CreateReply(ctx, "", working, catalogue)
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}
		o.recordUsage(ctx, reply.Usage)

		requestIdx := reply.FirstToolUse()
		if requestIdx == -1 {
			working = append(working, backend.Message{Role: backend.RoleAssistant, Content: reply.Content})
			for _, block := range reply.Content {
				if block.Type == backend.BlockText {
					output = append(output, block.Text)
				}
			}
			break
		}

		if toolRounds >= o.maxToolRounds {
			return "", &TooManyRoundsError{Limit: o.maxToolRounds}
		}
		toolRounds++

		// Only the first tool request in a reply is executed; any later
		// requests in the same reply are dropped this iteration, and the
		// model re-issues them if it still wants them.
		blocks := reply.Content[:requestIdx+1]
		working = append(working, backend.Message{Role: backend.RoleAssistant, Content: blocks})
		for _, block := range blocks {
			if block.Type == backend.BlockText {
				output = append(output, block.Text)
			}
		}

		request := blocks[requestIdx]
		o.logger.Info("model requested tool", "tool", request.Name, "round", toolRounds)

		result, err := o.invokeTool(ctx, request)
		if err != nil {
			return "", err
		}

		o.logger.Info(fmt.Sprintf("[Calling tool %s with args %s]", request.Name, string(request.Input)))
		working = append(working, backend.ToolResult(request.ID, result.CombinedText(), result.IsError))
	}

	sess.Commit(working)

	o.recordTurnDuration(ctx, time.Since(start))
	o.logger.Info("turn completed", "session_id", sess.ID, "tool_rounds", toolRounds,
		"history_len", len(sess.Messages))

	return strings.Join(output, "\n"), nil
}

// invokeTool runs one tool request. A result with IsError set is a valid
// outcome the model reacts to; only channel failures abort the turn.
func (o *Orchestrator) invokeTool(ctx context.Context, request backend.ContentBlock) (*mcp.CallToolResult, error) {
	ctx, span := o.tracer.Start(ctx, "tool_call")
	defer span.End()

	result, err := o.host.CallTool(ctx, request.Name, request.Input)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", request.Name, err)
	}
	if result.IsError {
		o.logger.Warn("tool reported business error", "tool", request.Name)
	}
	return result, nil
}

// catalogueFor translates the host's tool descriptors into the shape the
// reasoning model's tool interface expects. Pass-through only, no filtering.
func catalogueFor(tools []mcp.Tool) []backend.Tool {
	catalogue := make([]backend.Tool, len(tools))
	for i, tool := range tools {
		catalogue[i] = backend.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}
	return catalogue
}

// recordUsage records token usage metrics reported by the model.
func (o *Orchestrator) recordUsage(ctx context.Context, usage map[string]interface{}) {
	for key, value := range usage {
		floatVal, ok := value.(float64)
		if !ok {
			continue
		}
		counter, err := o.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			o.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(floatVal))
	}
}

func (o *Orchestrator) recordTurnDuration(ctx context.Context, d time.Duration) {
	histogram, err := o.meter.Float64Histogram(
		"agent.turn.duration",
		metric.WithDescription("Turn duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(d.Milliseconds()))
	}
}
