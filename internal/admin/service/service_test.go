package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/audit"
	disputeservice "landregistry/internal/dispute/service"
	disputestore "landregistry/internal/dispute/store"
	identitymodels "landregistry/internal/identity/models"
	landmodels "landregistry/internal/land/models"
	landservice "landregistry/internal/land/service"
	landstore "landregistry/internal/land/store"
	transferservice "landregistry/internal/transfer/service"
	transferstore "landregistry/internal/transfer/store"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/tx"
	"landregistry/pkg/requestcontext"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubUsers struct{}

func (stubUsers) FindByID(context.Context, string) (*identitymodels.User, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (stubUsers) FindByCitizenID(_ context.Context, citizenID string) (*identitymodels.User, error) {
	return &identitymodels.User{ID: "user-" + citizenID, CitizenID: citizenID}, nil
}

func (stubUsers) UpdateProfile(context.Context, string, identitymodels.ProfilePatch) (*identitymodels.User, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func TestOverview(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), t0)
	emitter := audit.NewEmitter(nil, nil, nil)
	runner := tx.NewShardedRunner()
	lands := landservice.New(landstore.NewInMemory(), stubUsers{}, emitter, nil)
	disputes := disputeservice.New(disputestore.NewInMemory(), lands, runner, emitter, nil)
	transfers := transferservice.New(transferstore.NewInMemory(), lands, stubUsers{}, runner, emitter, nil)
	svc := New(lands, disputes, transfers)

	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{}, ov)

	// Two parcels pending review, one approved and listed with a confirmed
	// buyer, one more approved and disputed.
	for _, parcel := range []string{"P1", "P2", "P3", "P4"} {
		_, err := lands.Register(ctx, landservice.RegisterInput{
			OwnerID: "user-111", ParcelID: parcel, SizeSqm: 100, UsageType: "business",
		})
		require.NoError(t, err)
	}
	for _, parcel := range []string{"P3", "P4"} {
		_, err := lands.Approve(ctx, parcel, "admin-1", landmodels.Patch{}, identitymodels.ProfilePatch{})
		require.NoError(t, err)
	}

	tr, err := transfers.Open(ctx, transferservice.OpenInput{SellerCitizenID: "111", ParcelID: "P3", BuyerCitizenID: "333"})
	require.NoError(t, err)
	_, err = transfers.Confirm(ctx, tr.ID, "111", "333")
	require.NoError(t, err)

	_, err = disputes.File(ctx, disputeservice.FileInput{
		ParcelID:           "P4",
		LandOwnerCitizenID: "111",
		RaisedByCitizenID:  "222",
		FileURL:            "https://files.example.com/evidence.pdf",
	})
	require.NoError(t, err)

	ov, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{PendingLands: 2, AwaitingTransfers: 1, LiveDisputes: 1}, ov)
}
