// Package store persists Transfer records.
package store

import (
	"context"
	"sort"
	"sync"

	"landregistry/internal/transfer/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
)

// InMemory stores transfers behind a mutex.
type InMemory struct {
	mu        sync.RWMutex
	transfers map[string]*models.Transfer
}

func NewInMemory() *InMemory {
	return &InMemory{transfers: make(map[string]*models.Transfer)}
}

func (s *InMemory) Create(_ context.Context, t *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTransfer(t), nil
}

// Execute runs validate-then-mutate atomically against one transfer.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	return cloneTransfer(t), nil
}

// ListByCitizen pages through the transfers a citizen is party to, as seller
// or buyer.
func (s *InMemory) ListByCitizen(_ context.Context, citizenID string, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list(func(t *models.Transfer) bool { return t.Involves(citizenID) }, page)
}

// ListAwaitingApproval pages through the admin queue: active transfers with
// a confirmed buyer.
func (s *InMemory) ListAwaitingApproval(_ context.Context, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list((*models.Transfer).AwaitingApproval, page)
}

// ListAll pages through every transfer. Admin use.
func (s *InMemory) ListAll(_ context.Context, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list(func(*models.Transfer) bool { return true }, page)
}

func (s *InMemory) list(match func(*models.Transfer) bool, page pagination.Page) ([]*models.Transfer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if match(t) {
			matched = append(matched, cloneTransfer(t))
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

func cloneTransfer(t *models.Transfer) *models.Transfer {
	clone := *t
	clone.Bids = make([]models.Bid, len(t.Bids))
	copy(clone.Bids, t.Bids)
	return &clone
}
