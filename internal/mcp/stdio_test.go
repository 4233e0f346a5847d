package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeServer drops an executable shell script that answers each request
// with a canned JSON-RPC response line.
func writeFakeServer(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-tool-host")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

const happyServer = `while read line; do
  case "$line" in
    *'"method":"initialize"'*)
      echo '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"fake-host","version":"0.1"}}}' ;;
    *'"method":"tools/list"'*)
      echo '{"jsonrpc":"2.0","id":2,"result":{"tools":[{"name":"get_nodes","description":"List edge nodes.","inputSchema":{"type":"object","properties":{}}}]}}' ;;
    *'"method":"tools/call"'*)
      echo '{"jsonrpc":"2.0","id":3,"result":{"content":[{"type":"text","text":"1 node online"}],"isError":false}}' ;;
  esac
done
`

func TestStdioHostRoundTrip(t *testing.T) {
	host, err := NewStdioHost(writeFakeServer(t, happyServer), nil, nil, nil)
	require.NoError(t, err)
	defer host.Close()

	ctx := context.Background()
	require.NoError(t, host.Initialize(ctx))

	tools, err := host.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_nodes", tools[0].Name)
	assert.Equal(t, "List edge nodes.", tools[0].Description)
	assert.Equal(t, "object", tools[0].InputSchema["type"])

	result, err := host.CallTool(ctx, "get_nodes", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "1 node online", result.CombinedText())
}

func TestStdioHostPassesEnvToServer(t *testing.T) {
	// The server reads its credential from the environment and echoes it
	// back in a tool result.
	script := `while read line; do
  case "$line" in
    *'"method":"initialize"'*)
      echo '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"fake-host","version":"0.1"}}}' ;;
    *'"method":"tools/call"'*)
      echo '{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"token='"$ZEDEDA_BEARER_TOKEN"'"}],"isError":false}}' ;;
  esac
done
`
	env := []string{"ZEDEDA_BEARER_TOKEN=Bearer fleet-secret-123"}
	host, err := NewStdioHost(writeFakeServer(t, script), nil, env, nil)
	require.NoError(t, err)
	defer host.Close()

	ctx := context.Background()
	require.NoError(t, host.Initialize(ctx))

	result, err := host.CallTool(ctx, "get_nodes", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "token=Bearer fleet-secret-123", result.CombinedText())
}

func TestStdioHostRPCErrorBecomesInvocationError(t *testing.T) {
	script := `while read line; do
  case "$line" in
    *'"method":"initialize"'*)
      echo '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"fake-host","version":"0.1"}}}' ;;
    *'"method":"tools/call"'*)
      echo '{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"unknown tool"}}' ;;
  esac
done
`
	host, err := NewStdioHost(writeFakeServer(t, script), nil, nil, nil)
	require.NoError(t, err)
	defer host.Close()

	ctx := context.Background()
	require.NoError(t, host.Initialize(ctx))

	_, err = host.CallTool(ctx, "no_such_tool", json.RawMessage(`{}`))
	require.Error(t, err)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "no_such_tool", invErr.Tool)
	assert.Contains(t, invErr.Error(), "unknown tool")
}

func TestStdioHostStartFailure(t *testing.T) {
	_, err := NewStdioHost("/nonexistent/tool-host-binary", nil, nil, nil)
	require.Error(t, err)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestStdioHostUnresponsiveServerHonorsContext(t *testing.T) {
	// Swallows every request without answering.
	host, err := NewStdioHost(writeFakeServer(t, "while read line; do :; done\n"), nil, nil, nil)
	require.NoError(t, err)
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = host.Initialize(ctx)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStdioHostCloseIsIdempotent(t *testing.T) {
	host, err := NewStdioHost(writeFakeServer(t, happyServer), nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, host.Close())
	require.NoError(t, host.Close())

	_, err = host.ListTools(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestCombinedTextJoinsTextBlocks(t *testing.T) {
	result := &CallToolResult{Content: []Content{
		{Type: "text", Text: "first"},
		{Type: "image", Text: "ignored"},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", result.CombinedText())
}
