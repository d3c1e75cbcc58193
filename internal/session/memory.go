package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Used in tests and as the
// default backend for local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	events   map[string][]Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		events:   make(map[string][]Event),
	}
}

func (s *MemoryStore) Create(_ context.Context, userID, sessionID string, state map[string]any) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		State:     cloneState(state),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[docKey(userID, sessionID)] = sess
	return cloneSession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[docKey(userID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) UpdateState(_ context.Context, userID, sessionID string, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[docKey(userID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	sess.State = cloneState(state)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(userID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, key)
	delete(s.events, key)
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, userID, sessionID string, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(userID, sessionID)
	sess, ok := s.sessions[key]
	if !ok {
		return ErrNotFound
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.events[key] = append(s.events[key], event)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, userID, sessionID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := docKey(userID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return nil, ErrNotFound
	}
	return append([]Event{}, s.events[key]...), nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneState(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

func cloneSession(sess *Session) *Session {
	cp := *sess
	cp.State = cloneState(sess.State)
	return &cp
}

var _ Store = (*MemoryStore)(nil)
