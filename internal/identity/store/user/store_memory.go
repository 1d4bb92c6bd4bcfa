package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"landregistry/internal/identity/models"
	"landregistry/pkg/platform/sentinel"
)

// InMemory stores users behind a mutex. Uniqueness of citizen id and email is
// enforced under the same lock as the insert.
type InMemory struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	byCitizen map[string]string
	byEmail   map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[string]*models.User),
		byCitizen: make(map[string]string),
		byEmail:   make(map[string]string),
	}
}

// CreateIfAvailable inserts the user unless the citizen id or email is taken.
func (s *InMemory) CreateIfAvailable(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCitizen[u.CitizenID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, taken := s.byEmail[strings.ToLower(u.Email)]; taken {
		return sentinel.ErrAlreadyUsed
	}

	clone := *u
	s.users[u.ID] = &clone
	s.byCitizen[u.CitizenID] = u.ID
	s.byEmail[strings.ToLower(u.Email)] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemory) FindByCitizenID(_ context.Context, citizenID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCitizen[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

// Execute runs validate-then-mutate atomically against one user.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(u); err != nil {
		return nil, err
	}

	// Mutate a working copy so a uniqueness collision leaves the stored
	// record untouched.
	work := *u
	mutate(&work)

	oldEmail := strings.ToLower(u.Email)
	newEmail := strings.ToLower(work.Email)
	if newEmail != oldEmail {
		if other, taken := s.byEmail[newEmail]; taken && other != id {
			return nil, sentinel.ErrAlreadyUsed
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[newEmail] = id
	}
	s.users[id] = &work

	clone := work
	return &clone, nil
}

// List returns all users ordered by creation time, newest first. Admin use.
func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
