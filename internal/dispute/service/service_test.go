package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/audit"
	"landregistry/internal/dispute/models"
	disputestore "landregistry/internal/dispute/store"
	identitymodels "landregistry/internal/identity/models"
	landmodels "landregistry/internal/land/models"
	landservice "landregistry/internal/land/service"
	landstore "landregistry/internal/land/store"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/tx"
	"landregistry/pkg/requestcontext"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type noUsers struct{}

func (noUsers) FindByID(context.Context, string) (*identitymodels.User, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (noUsers) UpdateProfile(context.Context, string, identitymodels.ProfilePatch) (*identitymodels.User, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

type fixture struct {
	disputes *Service
	lands    *landservice.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	emitter := audit.NewEmitter(nil, nil, nil)
	lands := landservice.New(landstore.NewInMemory(), noUsers{}, emitter, nil)
	disputes := New(disputestore.NewInMemory(), lands, tx.NewShardedRunner(), emitter, nil)
	return fixture{disputes: disputes, lands: lands}
}

func testCtx(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func (f fixture) registerActiveParcel(t *testing.T, parcelID string) {
	t.Helper()
	_, err := f.lands.Register(testCtx(t0), landservice.RegisterInput{
		OwnerID:   "owner-1",
		ParcelID:  parcelID,
		SizeSqm:   500,
		UsageType: "residential",
	})
	require.NoError(t, err)
	_, err = f.lands.Approve(testCtx(t0), parcelID, "admin-1", landmodels.Patch{}, identitymodels.ProfilePatch{})
	require.NoError(t, err)
}

func fileInput(parcelID string) FileInput {
	return FileInput{
		ParcelID:           parcelID,
		LandOwnerCitizenID: "111",
		RaisedByCitizenID:  "222",
		FileURL:            "https://files.example.com/evidence.pdf",
	}
}

func (f fixture) landStatus(t *testing.T, parcelID string) landmodels.LandStatus {
	t.Helper()
	l, err := f.lands.GetByParcelID(testCtx(t0), parcelID)
	require.NoError(t, err)
	return l.Status
}

func TestFile(t *testing.T) {
	t.Run("creates a waiting dispute and flips the parcel", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")

		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusWaiting, d.Status)
		assert.Equal(t, landmodels.StatusOnDispute, f.landStatus(t, "P1"))
	})

	t.Run("unknown parcel leaves no dispute behind", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.disputes.File(testCtx(t0), fileInput("GHOST"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		res, err := f.disputes.MyDisputes(testCtx(t0), "222", pagination.Page{Number: 1, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
	})

	t.Run("empty fields reject before touching the parcel", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")

		in := fileInput("P1")
		in.FileURL = "   "
		_, err := f.disputes.File(testCtx(t0), in)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.Equal(t, landmodels.StatusActive, f.landStatus(t, "P1"))
	})
}

func TestResolve(t *testing.T) {
	t.Run("marks solved without touching the parcel", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)

		solved, err := f.disputes.Resolve(testCtx(t0), d.ID, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSolved, solved.Status)
		assert.Equal(t, "admin-1", solved.AdminApproved)

		// Resolution records judgement only; the flag stays until an
		// explicit drop or admin action clears it.
		assert.Equal(t, landmodels.StatusOnDispute, f.landStatus(t, "P1"))
	})

	t.Run("closed disputes cannot be resolved again", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)
		_, err = f.disputes.Resolve(testCtx(t0), d.ID, "admin-1")
		require.NoError(t, err)

		_, err = f.disputes.Resolve(testCtx(t0), d.ID, "admin-2")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("unknown dispute is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.disputes.Resolve(testCtx(t0), "missing", "admin-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDrop(t *testing.T) {
	t.Run("soft-deletes and restores the parcel", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)

		dropped, err := f.disputes.Drop(testCtx(t0), d.ID, "222")
		require.NoError(t, err)
		assert.Equal(t, models.StatusDropped, dropped.Status)
		assert.True(t, dropped.IsDeleted())
		assert.Equal(t, landmodels.StatusActive, f.landStatus(t, "P1"))

		res, err := f.disputes.MyDisputes(testCtx(t0), "222", pagination.Page{Number: 1, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
	})

	t.Run("a late drop never clobbers a status that moved on", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)

		// The parcel was cleared and listed for sale while the dispute
		// record was still open.
		_, err = f.lands.ClearDispute(testCtx(t0), "P1")
		require.NoError(t, err)
		_, err = f.lands.SetForSale(testCtx(t0), "P1")
		require.NoError(t, err)

		_, err = f.disputes.Drop(testCtx(t0), d.ID, "222")
		require.NoError(t, err)
		assert.Equal(t, landmodels.StatusForSale, f.landStatus(t, "P1"))
	})

	t.Run("only a party to the dispute may drop it", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)

		_, err = f.disputes.Drop(testCtx(t0), d.ID, "999")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("dropping twice is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.registerActiveParcel(t, "P1")
		d, err := f.disputes.File(testCtx(t0), fileInput("P1"))
		require.NoError(t, err)
		_, err = f.disputes.Drop(testCtx(t0), d.ID, "222")
		require.NoError(t, err)

		_, err = f.disputes.Drop(testCtx(t0), d.ID, "222")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	for i, parcel := range []string{"P1", "P2", "P3"} {
		f.registerActiveParcel(t, parcel)
		in := fileInput(parcel)
		if parcel == "P3" {
			in.RaisedByCitizenID = "333"
			in.LandOwnerCitizenID = "444"
		}
		_, err := f.disputes.File(testCtx(t0.Add(time.Duration(i)*time.Hour)), in)
		require.NoError(t, err)
	}

	t.Run("my disputes covers both roles and excludes others", func(t *testing.T) {
		res, err := f.disputes.MyDisputes(testCtx(t0), "222", pagination.Page{Number: 1, Limit: 10, Sort: pagination.SortOldest})
		require.NoError(t, err)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "P1", res.Items[0].ParcelID)
	})

	t.Run("admin listing sees everything live", func(t *testing.T) {
		res, err := f.disputes.ListAll(testCtx(t0), pagination.Page{Number: 1, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Equal(t, 3, res.TotalItems)
		assert.Equal(t, 2, res.TotalPages)
	})
}
