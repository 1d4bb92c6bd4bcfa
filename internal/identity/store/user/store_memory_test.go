package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/internal/identity/models"
	"landregistry/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryUserStoreSuite) newUser(id, citizenID, email string) *models.User {
	u, err := models.NewUser(id, citizenID, email, "+1-555-0100", "Test User", "hash", models.RoleOwner, s.now)
	s.Require().NoError(err)
	return u
}

func (s *InMemoryUserStoreSuite) TestCreateIfAvailable() {
	s.Run("inserts and finds by both keys", func() {
		u := s.newUser("user-1", "111", "one@example.com")
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, u))

		byID, err := s.store.FindByID(s.ctx, "user-1")
		s.Require().NoError(err)
		s.Equal("111", byID.CitizenID)

		byCitizen, err := s.store.FindByCitizenID(s.ctx, "111")
		s.Require().NoError(err)
		s.Equal("user-1", byCitizen.ID)
	})

	s.Run("rejects a taken citizen id", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-2", "222", "two@example.com")))
		err := s.store.CreateIfAvailable(s.ctx, s.newUser("user-3", "222", "three@example.com"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects a taken email regardless of case", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-4", "444", "four@example.com")))
		dup := s.newUser("user-5", "555", "four@example.com")
		dup.Email = "Four@Example.COM"
		err := s.store.CreateIfAvailable(s.ctx, dup)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown lookups are not found", func() {
		_, err := s.store.FindByID(s.ctx, "user-404")
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByCitizenID(s.ctx, "404")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestExecute() {
	s.Run("persists the mutation", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-1", "111", "one@example.com")))

		updated, err := s.store.Execute(s.ctx, "user-1",
			func(*models.User) error { return nil },
			func(u *models.User) { u.Name = "Renamed"; u.UpdatedAt = s.now.Add(time.Hour) },
		)
		s.Require().NoError(err)
		s.Equal("Renamed", updated.Name)

		stored, err := s.store.FindByID(s.ctx, "user-1")
		s.Require().NoError(err)
		s.Equal("Renamed", stored.Name)
		s.Equal(s.now.Add(time.Hour), stored.UpdatedAt)
	})

	s.Run("validation failure leaves the record untouched", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-2", "222", "two@example.com")))

		_, err := s.store.Execute(s.ctx, "user-2",
			func(*models.User) error { return sentinel.ErrInvalidState },
			func(u *models.User) { u.Name = "must not land" },
		)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		stored, err := s.store.FindByID(s.ctx, "user-2")
		s.Require().NoError(err)
		s.Equal("Test User", stored.Name)
	})

	s.Run("email change re-indexes the user", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-3", "333", "three@example.com")))

		_, err := s.store.Execute(s.ctx, "user-3",
			func(*models.User) error { return nil },
			func(u *models.User) { u.Email = "new@example.com" },
		)
		s.Require().NoError(err)

		// The old address frees up for a new signup.
		s.NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-4", "444", "three@example.com")))
	})

	s.Run("email collision aborts the whole mutation", func() {
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-5", "555", "five@example.com")))
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newUser("user-6", "666", "six@example.com")))

		_, err := s.store.Execute(s.ctx, "user-6",
			func(*models.User) error { return nil },
			func(u *models.User) { u.Email = "five@example.com"; u.Name = "must not land" },
		)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		stored, err := s.store.FindByID(s.ctx, "user-6")
		s.Require().NoError(err)
		s.Equal("six@example.com", stored.Email)
		s.Equal("Test User", stored.Name)
	})

	s.Run("missing user is not found", func() {
		_, err := s.store.Execute(s.ctx, "user-404",
			func(*models.User) error { return nil },
			func(*models.User) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestList() {
	first := s.newUser("user-1", "111", "one@example.com")
	second := s.newUser("user-2", "222", "two@example.com")
	second.CreatedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, first))
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, second))

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("user-2", users[0].ID)
	s.Equal("user-1", users[1].ID)
}
