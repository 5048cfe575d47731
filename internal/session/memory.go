package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	cookie    string
	expiresAt time.Time
}

// MemoryStore is an in-process Store used when Redis is not configured and
// in tests. Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		if e, exists := s.entries[userID]; exists && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
			delete(s.entries, userID)
		}
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.cookie, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID, cookie string, ttl time.Duration) error {
	entry := memoryEntry{cookie: cookie}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[userID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Users(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	users := make([]string, 0, len(s.entries))
	for id, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}
