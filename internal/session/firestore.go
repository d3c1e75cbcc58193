package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/enercomp/enercomp/internal/logging"
)

const (
	sessionsCollection = "sessions"
	eventsCollection   = "events"
)

type firestoreSessionDoc struct {
	UserID    string         `firestore:"user_id"`
	SessionID string         `firestore:"session_id"`
	State     map[string]any `firestore:"state"`
	CreatedAt time.Time      `firestore:"created_at"`
	UpdatedAt time.Time      `firestore:"updated_at"`
}

type firestoreEventDoc struct {
	EventID   string    `firestore:"event_id"`
	Author    string    `firestore:"author"`
	Text      string    `firestore:"text"`
	Timestamp time.Time `firestore:"timestamp"`
}

// FirestoreStore persists sessions in a Firestore "sessions" collection with
// an "events" subcollection per session. Documents are keyed by the composite
// user:session key so two users can reuse the same session id.
type FirestoreStore struct {
	client *firestore.Client
	logger *logging.Logger
}

// NewFirestoreStore connects to Firestore in the given project. Credentials
// come from the ambient Google application-default credentials.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("session: firestore project id is required")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("session: failed to create firestore client: %w", err)
	}

	return &FirestoreStore{
		client: client,
		logger: logging.GetLogger("session.firestore"),
	}, nil
}

func (s *FirestoreStore) sessionDoc(userID, sessionID string) *firestore.DocumentRef {
	return s.client.Collection(sessionsCollection).Doc(docKey(userID, sessionID))
}

func (s *FirestoreStore) eventsCol(userID, sessionID string) *firestore.CollectionRef {
	return s.sessionDoc(userID, sessionID).Collection(eventsCollection)
}

func (s *FirestoreStore) Create(ctx context.Context, userID, sessionID string, state map[string]any) (*Session, error) {
	now := time.Now().UTC()
	doc := firestoreSessionDoc{
		UserID:    userID,
		SessionID: sessionID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.sessionDoc(userID, sessionID).Set(ctx, doc); err != nil {
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

func (s *FirestoreStore) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	snap, err := s.sessionDoc(userID, sessionID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: failed to get session: %w", err)
	}

	var doc firestoreSessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("session: failed to decode session: %w", err)
	}

	return &Session{
		ID:        doc.SessionID,
		UserID:    doc.UserID,
		State:     doc.State,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *FirestoreStore) UpdateState(ctx context.Context, userID, sessionID string, state map[string]any) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}

	_, err := s.sessionDoc(userID, sessionID).Set(ctx, map[string]any{
		"state":      state,
		"updated_at": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("session: failed to update session state: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, userID, sessionID string) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}

	// Subcollection documents are not removed with their parent; delete them
	// explicitly.
	iter := s.eventsCol(userID, sessionID).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("session: failed to list events for delete: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("session: failed to delete event: %w", err)
		}
	}

	if _, err := s.sessionDoc(userID, sessionID).Delete(ctx); err != nil {
		return fmt.Errorf("session: failed to delete session: %w", err)
	}
	return nil
}

func (s *FirestoreStore) AppendEvent(ctx context.Context, userID, sessionID string, event Event) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	doc := firestoreEventDoc{
		EventID:   event.ID,
		Author:    event.Author,
		Text:      event.Text,
		Timestamp: event.Timestamp,
	}
	if _, _, err := s.eventsCol(userID, sessionID).Add(ctx, doc); err != nil {
		return fmt.Errorf("session: failed to append event: %w", err)
	}

	_, err := s.sessionDoc(userID, sessionID).Set(ctx, map[string]any{
		"updated_at": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("session: failed to touch session: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListEvents(ctx context.Context, userID, sessionID string) ([]Event, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	iter := s.eventsCol(userID, sessionID).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var events []Event
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("session: failed to list events: %w", err)
		}

		var doc firestoreEventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("session: failed to decode event: %w", err)
		}
		events = append(events, Event{
			ID:        doc.EventID,
			Author:    doc.Author,
			Text:      doc.Text,
			Timestamp: doc.Timestamp,
		})
	}
	return events, nil
}

func (s *FirestoreStore) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	iter := s.client.Collection(sessionsCollection).
		Where("user_id", "==", userID).
		OrderBy("updated_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var sessions []*Session
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("session: failed to list sessions: %w", err)
		}

		var doc firestoreSessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("session: failed to decode session: %w", err)
		}
		sessions = append(sessions, &Session{
			ID:        doc.SessionID,
			UserID:    doc.UserID,
			State:     doc.State,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return sessions, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

var _ Store = (*FirestoreStore)(nil)
