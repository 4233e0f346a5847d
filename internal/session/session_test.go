package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()

	sess := store.Create()
	require.NotEmpty(t, sess.ID)
	assert.False(t, sess.StartTime.IsZero())

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	other := store.Create()
	assert.NotEqual(t, sess.ID, other.ID)
	_, ok = store.Get(other.ID)
	assert.True(t, ok)
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	sess := store.Create()

	store.Remove(sess.ID)
	_, ok := store.Get(sess.ID)
	assert.False(t, ok)

	// Removing twice is harmless.
	store.Remove(sess.ID)
}

func TestSnapshotIsIndependent(t *testing.T) {
	sess := &Session{}
	sess.Append(backend.UserText("hello"))

	working := sess.Snapshot()
	working = append(working, backend.UserText("uncommitted"))
	working[0] = backend.UserText("mutated")

	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "hello", sess.Messages[0].Content[0].Text)
	assert.Len(t, working, 2)
}

func TestAppendCommitsInOrder(t *testing.T) {
	sess := &Session{}
	sess.Append(backend.UserText("first"))
	sess.Append(
		backend.Message{Role: backend.RoleAssistant, Content: []backend.ContentBlock{{Type: backend.BlockText, Text: "second"}}},
		backend.UserText("third"),
	)

	require.Len(t, sess.Messages, 3)
	assert.Equal(t, backend.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, backend.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "third", sess.Messages[2].Content[0].Text)
}
