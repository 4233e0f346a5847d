package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// StdioHost implements ToolHost by spawning a tool server subprocess and
// speaking newline-delimited JSON-RPC over its stdin/stdout.
type StdioHost struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.ReadCloser
	lines  chan []byte
	logger *slog.Logger

	mu      sync.Mutex // serializes requests on the single pipe pair
	reqID   int
	scanErr error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStdioHost starts the tool server process and wires up its pipes. Entries
// in env are appended to the parent environment, so credentials the server
// needs are handed over explicitly rather than relying on inheritance. The
// caller must Initialize before issuing requests and Close when done.
func NewStdioHost(command string, args []string, env []string, logger *slog.Logger) (*StdioHost, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("failed to start tool host %s: %w", command, err)}
	}

	host := &StdioHost{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		lines:  make(chan []byte),
		logger: logger.With("component", "toolhost"),
		closed: make(chan struct{}),
	}

	go host.readLoop(stdout)
	go host.logStderr()

	host.logger.Info("started tool host", "command", command, "pid", cmd.Process.Pid)
	return host, nil
}

// Initialize performs the MCP handshake and announces readiness.
func (h *StdioHost) Initialize(ctx context.Context) error {
	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo: ClientInfo{
			Name:    "zededa-agent",
			Version: "1.0",
		},
	}

	var result InitializeResult
	if err := h.sendRequest(ctx, MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	if err := h.notify(MethodInitialized); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	h.logger.Info("tool host initialized",
		"server", result.ServerInfo.Name, "version", result.ServerInfo.Version)
	return nil
}

// ListTools returns the tools the host currently advertises.
func (h *StdioHost) ListTools(ctx context.Context) ([]Tool, error) {
	var result ListToolsResult
	if err := h.sendRequest(ctx, MethodListTools, nil, &result); err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}

	tools := make([]Tool, len(result.Tools))
	for i, info := range result.Tools {
		tools[i] = Tool{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.InputSchema,
		}
	}

	h.logger.Debug("listed tools", "count", len(tools))
	return tools, nil
}

// CallTool invokes a tool with raw JSON arguments. A transport failure comes
// back as a ConnectionError, a protocol-level rejection as an InvocationError.
// A result with IsError set is not an error return.
func (h *StdioHost) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResult, error) {
	params := CallToolParams{
		Name:      name,
		Arguments: args,
	}

	var result CallToolResult
	if err := h.sendRequest(ctx, MethodCallTool, params, &result); err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &InvocationError{Tool: name, Err: err}
	}

	h.logger.Info("called tool", "tool", name, "is_error", result.IsError)
	return &result, nil
}

// Close tears down the pipes and reaps the subprocess. Safe to call more
// than once.
func (h *StdioHost) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		h.stdin.Close()
		if h.cmd.Process != nil {
			if err := h.cmd.Process.Kill(); err != nil {
				h.logger.Warn("failed to kill tool host process", "error", err)
			}
		}
		h.cmd.Wait()
		h.logger.Info("closed tool host")
	})
	return nil
}

// sendRequest sends one JSON-RPC request and waits for its response line.
func (h *StdioHost) sendRequest(ctx context.Context, method string, params interface{}, result interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.closed:
		return &ConnectionError{Err: errors.New("tool host is closed")}
	default:
	}

	h.reqID++
	id := h.reqID
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  params,
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := h.stdin.Write(append(requestJSON, '\n')); err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to write request: %w", err)}
	}

	var response JSONRPCResponse
	for {
		var line []byte
		select {
		case line = <-h.lines:
			if line == nil {
				if h.scanErr != nil {
					return &ConnectionError{Err: fmt.Errorf("failed to read response: %w", h.scanErr)}
				}
				return &ConnectionError{Err: errors.New("tool host closed its stdout")}
			}
		case <-ctx.Done():
			return &ConnectionError{Err: ctx.Err()}
		case <-h.closed:
			return &ConnectionError{Err: errors.New("tool host is closed")}
		}

		if err := json.Unmarshal(line, &response); err != nil {
			return &ConnectionError{Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		}
		// Skip stale replies left over from a cancelled request.
		if response.ID == id {
			break
		}
		h.logger.Warn("dropping response with unexpected id", "got", response.ID, "want", id)
	}

	if response.Error != nil {
		return fmt.Errorf("RPC error %d: %s", response.Error.Code, response.Error.Message)
	}

	if result != nil && response.Result != nil {
		if err := json.Unmarshal(response.Result, result); err != nil {
			return &ConnectionError{Err: fmt.Errorf("failed to unmarshal result: %w", err)}
		}
	}

	return nil
}

// notify sends a JSON-RPC notification, which carries no id and gets no reply.
func (h *StdioHost) notify(method string) error {
	notification := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if _, err := h.stdin.Write(append(payload, '\n')); err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to write notification: %w", err)}
	}
	return nil
}

// readLoop pushes stdout lines to the response channel until EOF.
func (h *StdioHost) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		select {
		case h.lines <- line:
		case <-h.closed:
			return
		}
	}
	h.scanErr = scanner.Err()
	close(h.lines)
}

// logStderr logs stderr output from the tool host process.
func (h *StdioHost) logStderr() {
	scanner := bufio.NewScanner(h.stderr)
	for scanner.Scan() {
		h.logger.Warn("tool host stderr", "message", scanner.Text())
	}
}
