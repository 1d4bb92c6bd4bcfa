package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/internal/land/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
)

type InMemoryLandStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryLandStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLandStoreSuite))
}

func (s *InMemoryLandStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryLandStoreSuite) newLand(id, parcelID, ownerID string) *models.Land {
	l, err := models.NewLand(id, parcelID, ownerID, 500, models.UsageResidential, models.Location{}, s.now)
	s.Require().NoError(err)
	return l
}

func (s *InMemoryLandStoreSuite) TestCreate() {
	s.Run("inserts and finds by parcel id", func() {
		l := s.newLand("land-1", "C1", "owner-1")
		s.Require().NoError(s.store.Create(s.ctx, l))

		found, err := s.store.FindByParcelID(s.ctx, "C1")
		s.Require().NoError(err)
		s.Equal("land-1", found.ID)
	})

	s.Run("rejects a taken parcel id", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-2", "C2", "owner-1")))
		err := s.store.Create(s.ctx, s.newLand("land-3", "C2", "owner-2"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown parcel id is not found", func() {
		_, err := s.store.FindByParcelID(s.ctx, "C404")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryLandStoreSuite) TestExecute() {
	s.Run("mutations persist", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-1", "E1", "owner-1")))

		_, err := s.store.Execute(s.ctx, "E1",
			func(*models.Land) error { return nil },
			func(l *models.Land) { l.ApplyApproval("admin-1", s.now) },
		)
		s.Require().NoError(err)

		found, err := s.store.FindByParcelID(s.ctx, "E1")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, found.Status)
		s.Len(found.OwnershipHistory, 1)
	})

	s.Run("validation failure leaves the record untouched", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-2", "E2", "owner-1")))

		_, err := s.store.Execute(s.ctx, "E2",
			func(*models.Land) error { return sentinel.ErrInvalidState },
			func(l *models.Land) { l.ApplyApproval("admin-1", s.now) },
		)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByParcelID(s.ctx, "E2")
		s.Require().NoError(err)
		s.Equal(models.StatusWaitingApproval, found.Status)
	})

	s.Run("rename re-indexes the parcel id", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-3", "E3", "owner-1")))

		_, err := s.store.Execute(s.ctx, "E3",
			func(*models.Land) error { return nil },
			func(l *models.Land) { l.ParcelID = "E3-NEW" },
		)
		s.Require().NoError(err)

		_, err = s.store.FindByParcelID(s.ctx, "E3")
		s.ErrorIs(err, sentinel.ErrNotFound)
		found, err := s.store.FindByParcelID(s.ctx, "E3-NEW")
		s.Require().NoError(err)
		s.Equal("land-3", found.ID)
	})

	s.Run("rename onto a taken parcel id rolls back", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-4", "E4", "owner-1")))
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-5", "E5", "owner-1")))

		_, err := s.store.Execute(s.ctx, "E4",
			func(*models.Land) error { return nil },
			func(l *models.Land) { l.ParcelID = "E5" },
		)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		found, err := s.store.FindByParcelID(s.ctx, "E4")
		s.Require().NoError(err)
		s.Equal("land-4", found.ID)
	})

	s.Run("caller mutations do not leak into the store", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-6", "E6", "owner-1")))

		got, err := s.store.Execute(s.ctx, "E6",
			func(*models.Land) error { return nil },
			func(l *models.Land) { l.ApplyApproval("admin-1", s.now) },
		)
		s.Require().NoError(err)
		got.OwnershipHistory[0].OwnerID = "tampered"

		found, err := s.store.FindByParcelID(s.ctx, "E6")
		s.Require().NoError(err)
		s.Equal("owner-1", found.OwnershipHistory[0].OwnerID)
	})
}

func (s *InMemoryLandStoreSuite) TestList() {
	seed := func(id, parcelID, ownerID string, status models.LandStatus, created time.Time) {
		l := s.newLand(id, parcelID, ownerID)
		l.Status = status
		l.CreatedAt = created
		l.UpdatedAt = created
		s.Require().NoError(s.store.Create(s.ctx, l))
	}
	seed("land-1", "L1", "owner-1", models.StatusActive, s.now)
	seed("land-2", "L2", "owner-1", models.StatusForSale, s.now.Add(time.Hour))
	seed("land-3", "L3", "owner-2", models.StatusActive, s.now.Add(2*time.Hour))

	s.Run("filters by owner", func() {
		items, total, err := s.store.List(s.ctx, Query{OwnerID: "owner-1", Page: pagination.Page{Number: 1, Limit: 10}})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Len(items, 2)
	})

	s.Run("filters by status", func() {
		items, total, err := s.store.List(s.ctx, Query{Status: models.StatusForSale, Page: pagination.Page{Number: 1, Limit: 10}})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal("L2", items[0].ParcelID)
	})

	s.Run("newest first by default", func() {
		items, _, err := s.store.List(s.ctx, Query{Page: pagination.Page{Number: 1, Limit: 10}})
		s.Require().NoError(err)
		s.Equal("L3", items[0].ParcelID)
		s.Equal("L1", items[2].ParcelID)
	})

	s.Run("pages with total count", func() {
		items, total, err := s.store.List(s.ctx, Query{Page: pagination.Page{Number: 2, Limit: 2}})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(items, 1)
	})
}
