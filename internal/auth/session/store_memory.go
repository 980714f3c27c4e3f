package session

import (
	"context"
	"fmt"
	"sync"

	"aituki/internal/auth/models"
	"aituki/pkg/platform/sentinel"
)

// InMemoryStore keeps the persisted session in memory for tests/dev. It
// satisfies the Store contract but obviously does not survive restarts.
type InMemoryStore struct {
	mu      sync.RWMutex
	session *models.Session
}

// NewMemory constructs an empty in-memory session store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, fmt.Errorf("no persisted session: %w", sentinel.ErrNotFound)
	}
	copied := *s.session
	return &copied, nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
