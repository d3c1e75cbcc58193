// Package artifact stores per-session binary artifacts such as uploaded CSV
// files and generated report JSON. Backends share the Store interface; the
// object key layout is artifacts/{user_id}/{session_id}/{artifact_key}.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one stored object.
type Artifact struct {
	Key       string    `json:"key"`
	MIMEType  string    `json:"mimeType"`
	Data      []byte    `json:"-"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the artifact persistence interface.
type Store interface {
	// Save stores data under the key, replacing any previous version.
	Save(ctx context.Context, userID, sessionID, key, mimeType string, data []byte) error

	// Load returns the artifact, or ErrNotFound.
	Load(ctx context.Context, userID, sessionID, key string) (*Artifact, error)

	// List returns artifact metadata (no data) for a session, ordered by key.
	List(ctx context.Context, userID, sessionID string) ([]Artifact, error)

	// Delete removes the artifact. Deleting a missing artifact returns
	// ErrNotFound.
	Delete(ctx context.Context, userID, sessionID, key string) error

	// Close releases backend resources.
	Close() error
}

func objectKey(userID, sessionID, key string) string {
	return fmt.Sprintf("artifacts/%s/%s/%s", userID, sessionID, key)
}

func sessionPrefix(userID, sessionID string) string {
	return fmt.Sprintf("artifacts/%s/%s/", userID, sessionID)
}
