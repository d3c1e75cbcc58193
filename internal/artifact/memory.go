package artifact

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Artifact
}

// NewMemoryStore creates an empty in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Artifact)}
}

func (s *MemoryStore) Save(_ context.Context, userID, sessionID, key, mimeType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[objectKey(userID, sessionID, key)] = &Artifact{
		Key:       key,
		MIMEType:  mimeType,
		Data:      append([]byte{}, data...),
		Size:      int64(len(data)),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, userID, sessionID, key string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectKey(userID, sessionID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *obj
	cp.Data = append([]byte{}, obj.Data...)
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, userID, sessionID string) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := sessionPrefix(userID, sessionID)
	var out []Artifact
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Artifact{
				Key:       obj.Key,
				MIMEType:  obj.MIMEType,
				Size:      obj.Size,
				UpdatedAt: obj.UpdatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := objectKey(userID, sessionID, key)
	if _, ok := s.objects[k]; !ok {
		return ErrNotFound
	}
	delete(s.objects, k)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
