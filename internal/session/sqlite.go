package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/enercomp/enercomp/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	key        TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	session_id TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS session_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_key TEXT NOT NULL REFERENCES sessions(key) ON DELETE CASCADE,
	event_id    TEXT NOT NULL,
	author      TEXT NOT NULL,
	text        TEXT NOT NULL,
	timestamp   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_key ON session_events(session_key);
`

// SQLiteStore persists sessions in a local sqlite database. The schema is
// bootstrapped on open.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: failed to open sqlite database %q: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.GetLogger("session.sqlite"),
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID, sessionID string, state map[string]any) (*Session, error) {
	stateJSON, err := marshalState(state)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (key, user_id, session_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		docKey(userID, sessionID), userID, sessionID, stateJSON, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("session: failed to create session: %w", err)
	}

	return &Session{
		ID:        sessionID,
		UserID:    userID,
		State:     cloneState(state),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, state, created_at, updated_at FROM sessions WHERE key = ?`,
		docKey(userID, sessionID),
	)
	return scanSession(row)
}

func (s *SQLiteStore) UpdateState(ctx context.Context, userID, sessionID string, state map[string]any) error {
	stateJSON, err := marshalState(state)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, updated_at = ? WHERE key = ?`,
		stateJSON, time.Now().UTC(), docKey(userID, sessionID),
	)
	if err != nil {
		return fmt.Errorf("session: failed to update session state: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE key = ?`, docKey(userID, sessionID),
	)
	if err != nil {
		return fmt.Errorf("session: failed to delete session: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, userID, sessionID string, event Event) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_events (session_key, event_id, author, text, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		docKey(userID, sessionID), event.ID, event.Author, event.Text, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("session: failed to append event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE key = ?`,
		time.Now().UTC(), docKey(userID, sessionID),
	)
	if err != nil {
		return fmt.Errorf("session: failed to touch session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, userID, sessionID string) ([]Event, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, author, text, timestamp FROM session_events
		 WHERE session_key = ? ORDER BY id ASC`,
		docKey(userID, sessionID),
	)
	if err != nil {
		return nil, fmt.Errorf("session: failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Author, &ev.Text, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("session: failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: failed to iterate events: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, state, created_at, updated_at FROM sessions
		 WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("session: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var stateJSON string
	err := row.Scan(&sess.ID, &sess.UserID, &stateJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: failed to scan session: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &sess.State); err != nil {
		return nil, fmt.Errorf("session: corrupt session state: %w", err)
	}
	return &sess, nil
}

func marshalState(state map[string]any) (string, error) {
	if state == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("session: failed to encode session state: %w", err)
	}
	return string(raw), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
