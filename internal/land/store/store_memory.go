// Package store persists Land records. Both implementations serialize
// mutations per parcel so the registry's status flips and ledger edits are
// observed atomically.
package store

import (
	"context"
	"sort"
	"sync"

	"landregistry/internal/land/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
)

// Query filters a land listing. Zero fields match everything.
type Query struct {
	OwnerID string
	Status  models.LandStatus
	Page    pagination.Page
}

// InMemory stores lands behind a mutex, keyed by id with a parcel-id index.
type InMemory struct {
	mu       sync.RWMutex
	lands    map[string]*models.Land
	byParcel map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		lands:    make(map[string]*models.Land),
		byParcel: make(map[string]string),
	}
}

// Create inserts the land unless the parcel id is taken.
func (s *InMemory) Create(_ context.Context, l *models.Land) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byParcel[l.ParcelID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.lands[l.ID] = cloneLand(l)
	s.byParcel[l.ParcelID] = l.ID
	return nil
}

func (s *InMemory) FindByParcelID(_ context.Context, parcelID string) (*models.Land, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byParcel[parcelID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneLand(s.lands[id]), nil
}

// Execute runs validate-then-mutate atomically against one parcel. A parcel
// rename inside mutate is re-indexed; renaming onto a taken parcel id fails
// and leaves the stored record untouched.
func (s *InMemory) Execute(_ context.Context, parcelID string, validate func(*models.Land) error, mutate func(*models.Land)) (*models.Land, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byParcel[parcelID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	l := s.lands[id]
	if err := validate(l); err != nil {
		return nil, err
	}

	work := cloneLand(l)
	mutate(work)

	if work.ParcelID != l.ParcelID {
		if other, taken := s.byParcel[work.ParcelID]; taken && other != id {
			return nil, sentinel.ErrAlreadyUsed
		}
		delete(s.byParcel, l.ParcelID)
		s.byParcel[work.ParcelID] = id
	}
	s.lands[id] = work

	return cloneLand(work), nil
}

// List returns one page of lands matching the query plus the total match
// count. Sorting follows the page's sort order.
func (s *InMemory) List(_ context.Context, q Query) ([]*models.Land, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Land, 0, len(s.lands))
	for _, l := range s.lands {
		if q.OwnerID != "" && l.OwnerID != q.OwnerID {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		matched = append(matched, cloneLand(l))
	}
	sortLands(matched, q.Page.Sort)
	total := len(matched)
	return pagination.Slice(q.Page, matched), total, nil
}

func sortLands(lands []*models.Land, order pagination.Sort) {
	sort.SliceStable(lands, func(i, j int) bool {
		switch order {
		case pagination.SortOldest:
			return lands[i].CreatedAt.Before(lands[j].CreatedAt)
		case pagination.SortRecentlyUpdated:
			return lands[i].UpdatedAt.After(lands[j].UpdatedAt)
		default:
			return lands[i].CreatedAt.After(lands[j].CreatedAt)
		}
	})
}

func cloneLand(l *models.Land) *models.Land {
	clone := *l
	clone.OwnershipHistory = make([]models.OwnershipEntry, len(l.OwnershipHistory))
	copy(clone.OwnershipHistory, l.OwnershipHistory)
	return &clone
}
