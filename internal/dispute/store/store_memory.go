// Package store persists Dispute records.
package store

import (
	"context"
	"sort"
	"sync"

	"landregistry/internal/dispute/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
)

// InMemory stores disputes behind a mutex.
type InMemory struct {
	mu       sync.RWMutex
	disputes map[string]*models.Dispute
}

func NewInMemory() *InMemory {
	return &InMemory{disputes: make(map[string]*models.Dispute)}
}

func (s *InMemory) Create(_ context.Context, d *models.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *d
	s.disputes[d.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

// Execute runs validate-then-mutate atomically against one dispute.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Dispute) error, mutate func(*models.Dispute)) (*models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.disputes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)

	clone := *d
	return &clone, nil
}

// ListByCitizen pages through the disputes a citizen is party to, excluding
// soft-deleted ones.
func (s *InMemory) ListByCitizen(_ context.Context, citizenID string, page pagination.Page) ([]*models.Dispute, int, error) {
	return s.list(func(d *models.Dispute) bool {
		return !d.IsDeleted() && d.Involves(citizenID)
	}, page)
}

// ListAll pages through every non-deleted dispute. Admin use.
func (s *InMemory) ListAll(_ context.Context, page pagination.Page) ([]*models.Dispute, int, error) {
	return s.list(func(d *models.Dispute) bool { return !d.IsDeleted() }, page)
}

func (s *InMemory) list(match func(*models.Dispute) bool, page pagination.Page) ([]*models.Dispute, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Dispute, 0, len(s.disputes))
	for _, d := range s.disputes {
		if match(d) {
			clone := *d
			matched = append(matched, &clone)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		switch page.Sort {
		case pagination.SortOldest:
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		case pagination.SortRecentlyUpdated:
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		default:
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
	})
	total := len(matched)
	return pagination.Slice(page, matched), total, nil
}
