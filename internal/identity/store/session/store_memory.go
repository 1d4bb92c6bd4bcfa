package session

import (
	"context"
	"sync"

	"landregistry/internal/identity/models"
	"landregistry/pkg/platform/sentinel"
)

// InMemory keeps sessions in process memory. Expiry is checked on read; the
// map is small enough that a sweeper is not worth carrying.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]models.Session)}
}

func (s *InMemory) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemory) Find(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
