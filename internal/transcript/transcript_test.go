package transcript

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := Open(filepath.Join(t.TempDir(), "transcript.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestRecordAndLoadRoundTrip(t *testing.T) {
	rec := openTestRecorder(t)
	start := time.Now()

	turn := []backend.Message{
		backend.UserText("list my devices"),
		{
			Role: backend.RoleAssistant,
			Content: []backend.ContentBlock{{
				Type:  backend.BlockToolUse,
				ID:    "toolu_1",
				Name:  "get_nodes",
				Input: json.RawMessage(`{}`),
			}},
		},
		backend.ToolResult("toolu_1", "1 node", false),
		{
			Role:    backend.RoleAssistant,
			Content: []backend.ContentBlock{{Type: backend.BlockText, Text: "You have 1 device."}},
		},
	}
	require.NoError(t, rec.Record("sess-1", start, turn))

	loaded, err := rec.LoadMessages("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	assert.Equal(t, backend.RoleUser, loaded[0].Role)
	assert.Equal(t, "list my devices", loaded[0].Content[0].Text)
	assert.Equal(t, "get_nodes", loaded[1].Content[0].Name)
	assert.Equal(t, "toolu_1", loaded[2].Content[0].ToolUseID)
	assert.Equal(t, "You have 1 device.", loaded[3].Content[0].Text)
}

func TestRecordAppendsAcrossTurns(t *testing.T) {
	rec := openTestRecorder(t)
	start := time.Now()

	require.NoError(t, rec.Record("sess-1", start, []backend.Message{backend.UserText("first")}))
	require.NoError(t, rec.Record("sess-1", start, []backend.Message{backend.UserText("second")}))

	loaded, err := rec.LoadMessages("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "first", loaded[0].Content[0].Text)
	assert.Equal(t, "second", loaded[1].Content[0].Text)
}

func TestLoadMessagesUnknownSession(t *testing.T) {
	rec := openTestRecorder(t)

	loaded, err := rec.LoadMessages("missing")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
