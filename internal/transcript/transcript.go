package transcript

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
)

// Recorder keeps a write-only audit transcript of committed turns in SQLite.
// The in-memory session remains the history of record for live turns; a
// recording failure is logged and never fails the turn that produced it.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the transcript database and ensures the schema.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		start_time DATETIME
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME,
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec(createMessagesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	return &Recorder{db: db, logger: logger.With("component", "transcript")}, nil
}

// Record appends the messages committed by one turn to the transcript.
func (r *Recorder) Record(sessionID string, startTime time.Time, messages []backend.Message) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO sessions (id, start_time) VALUES (?, ?)",
		sessionID, startTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	now := time.Now()
	for _, msg := range messages {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			r.logger.Warn("failed to marshal message content", "error", err)
			continue
		}
		_, err = tx.Exec(
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			sessionID, msg.Role, string(content), now,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadMessages returns the recorded messages for a session in insertion order.
func (r *Recorder) LoadMessages(sessionID string) ([]backend.Message, error) {
	rows, err := r.db.Query(
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []backend.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg := backend.Message{Role: role}
		if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message content: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
