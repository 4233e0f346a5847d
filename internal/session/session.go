package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
)

// Session holds the committed conversation history for one client. History
// lives in memory only and is gone when the process exits.
type Session struct {
	ID        string
	StartTime time.Time
	Messages  []backend.Message
}

// Append commits messages to the history.
func (s *Session) Append(messages ...backend.Message) {
	s.Messages = append(s.Messages, messages...)
}

// Commit replaces the history with a completed working copy.
func (s *Session) Commit(messages []backend.Message) {
	s.Messages = messages
}

// Snapshot returns a copy of the history for use as a working copy. Mutating
// the copy leaves the session untouched.
func (s *Session) Snapshot() []backend.Message {
	copied := make([]backend.Message, len(s.Messages))
	copy(copied, s.Messages)
	return copied
}

// Store tracks live sessions by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a fresh id.
func (st *Store) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	return sess
}

// Get returns the session with the given id, if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Remove drops a session from the store.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
