// Package session persists chat sessions and their event history. Three
// backends implement the same Store interface: an in-memory map, sqlite, and
// Firestore. The backend is selected by configuration only; callers never
// know which one they talk to.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a (user, session) pair does not exist.
var ErrNotFound = errors.New("session not found")

// Session is one chat session owned by a user.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	State     map[string]any `json:"state,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Event is one entry of a session's history: a user message or an agent
// response.
type Event struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the session persistence interface. Get and event operations on a
// missing (user, session) pair return ErrNotFound; every other failure is a
// wrapped backend error.
type Store interface {
	// Create makes a new session with the given initial state.
	Create(ctx context.Context, userID, sessionID string, state map[string]any) (*Session, error)

	// Get returns the session for the pair, or ErrNotFound.
	Get(ctx context.Context, userID, sessionID string) (*Session, error)

	// UpdateState replaces the session state.
	UpdateState(ctx context.Context, userID, sessionID string, state map[string]any) error

	// Delete removes the session and its events. Deleting a missing session
	// returns ErrNotFound.
	Delete(ctx context.Context, userID, sessionID string) error

	// AppendEvent appends to the session's history.
	AppendEvent(ctx context.Context, userID, sessionID string, event Event) error

	// ListEvents returns the session's history in append order.
	ListEvents(ctx context.Context, userID, sessionID string) ([]Event, error)

	// ListSessions returns all sessions of a user, most recently updated
	// first.
	ListSessions(ctx context.Context, userID string) ([]*Session, error)

	// Close releases backend resources.
	Close() error
}

// docKey is the composite document key shared by the sqlite and Firestore
// backends.
func docKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}
