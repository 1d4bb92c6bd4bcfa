//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/internal/land/models"
	"landregistry/internal/land/store"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/testutil/containers"
)

type PostgresLandStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
	now      time.Time
}

func TestPostgresLandStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLandStoreSuite))
}

func (s *PostgresLandStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresLandStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "lands"))
}

func (s *PostgresLandStoreSuite) newLand(id, parcelID, ownerID string) *models.Land {
	l, err := models.NewLand(id, parcelID, ownerID, 500, models.UsageResidential, models.Location{
		Address: "KG 11 Ave",
		GPS:     models.GPS{Lat: -1.95, Lon: 30.06},
	}, s.now)
	s.Require().NoError(err)
	return l
}

func (s *PostgresLandStoreSuite) TestRoundTrip() {
	l := s.newLand("land-1", "C1", "owner-1")
	s.Require().NoError(s.store.Create(s.ctx, l))

	got, err := s.store.FindByParcelID(s.ctx, "C1")
	s.Require().NoError(err)
	s.Equal("land-1", got.ID)
	s.Equal("owner-1", got.OwnerID)
	s.Equal(models.StatusWaitingApproval, got.Status)
	s.Equal("KG 11 Ave", got.Location.Address)
	s.NotNil(got.OwnershipHistory)
	s.Empty(got.OwnershipHistory)
}

func (s *PostgresLandStoreSuite) TestCreateDuplicateParcel() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-1", "C1", "owner-1")))
	err := s.store.Create(s.ctx, s.newLand("land-2", "C1", "owner-2"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresLandStoreSuite) TestExecutePersistsLedger() {
	l := s.newLand("land-1", "C1", "owner-1")
	s.Require().NoError(s.store.Create(s.ctx, l))

	_, err := s.store.Execute(s.ctx, "C1",
		func(*models.Land) error { return nil },
		func(l *models.Land) { l.ApplyApproval("admin-1", s.now.Add(time.Hour)) },
	)
	s.Require().NoError(err)

	got, err := s.store.FindByParcelID(s.ctx, "C1")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
	s.Equal("admin-1", got.ApprovedBy)
	s.Require().Len(got.OwnershipHistory, 1)
	s.Equal("owner-1", got.OwnershipHistory[0].OwnerID)
	s.Nil(got.OwnershipHistory[0].ToDate)
}

func (s *PostgresLandStoreSuite) TestExecuteValidationFailureLeavesRowUntouched() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-1", "C1", "owner-1")))

	boom := sentinel.ErrInvalidState
	_, err := s.store.Execute(s.ctx, "C1",
		func(*models.Land) error { return boom },
		func(l *models.Land) { l.Status = models.StatusActive },
	)
	s.ErrorIs(err, boom)

	got, err := s.store.FindByParcelID(s.ctx, "C1")
	s.Require().NoError(err)
	s.Equal(models.StatusWaitingApproval, got.Status)
}

func (s *PostgresLandStoreSuite) TestExecuteRenameCollision() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-1", "C1", "owner-1")))
	s.Require().NoError(s.store.Create(s.ctx, s.newLand("land-2", "C2", "owner-2")))

	_, err := s.store.Execute(s.ctx, "C2",
		func(*models.Land) error { return nil },
		func(l *models.Land) { l.ParcelID = "C1" },
	)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	got, err := s.store.FindByParcelID(s.ctx, "C2")
	s.Require().NoError(err)
	s.Equal("land-2", got.ID)
}

func (s *PostgresLandStoreSuite) TestMissingParcel() {
	_, err := s.store.FindByParcelID(s.ctx, "GHOST")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(s.ctx, "GHOST",
		func(*models.Land) error { return nil },
		func(*models.Land) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLandStoreSuite) TestListFiltersAndPages() {
	for i, seed := range []struct{ id, parcel, owner string }{
		{"land-1", "C1", "owner-1"},
		{"land-2", "C2", "owner-1"},
		{"land-3", "C3", "owner-2"},
	} {
		l := s.newLand(seed.id, seed.parcel, seed.owner)
		l.CreatedAt = s.now.Add(time.Duration(i) * time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, l))
	}

	items, total, err := s.store.List(s.ctx, store.Query{
		OwnerID: "owner-1",
		Page:    pagination.Page{Number: 1, Limit: 1},
	})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(items, 1)
	s.Equal("C2", items[0].ParcelID) // newest first

	items, total, err = s.store.List(s.ctx, store.Query{
		Status: models.StatusWaitingApproval,
		Page:   pagination.Page{Number: 1, Limit: 10, Sort: pagination.SortOldest},
	})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(items, 3)
	s.Equal("C1", items[0].ParcelID)
}
