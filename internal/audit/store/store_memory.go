package store

import (
	"context"
	"sync"

	"landregistry/internal/audit"
)

// InMemory keeps audit events in process memory. Suits tests and single-node
// deployments without a durable trail requirement.
type InMemory struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemory) ListByParcel(_ context.Context, parcelID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ParcelID == parcelID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every recorded event, newest last. Test helper.
func (s *InMemory) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
