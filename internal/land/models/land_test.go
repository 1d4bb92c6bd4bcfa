package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLand(t *testing.T) *Land {
	t.Helper()
	l, err := NewLand("land-1", "P1", "owner-1", 500, UsageResidential, Location{Address: "12 Moo 4"}, t0)
	require.NoError(t, err)
	return l
}

func TestNewLand(t *testing.T) {
	t.Run("starts waiting with empty history", func(t *testing.T) {
		l := newTestLand(t)
		assert.Equal(t, StatusWaitingApproval, l.Status)
		assert.Empty(t, l.OwnershipHistory)
		assert.Empty(t, l.ApprovedBy)
	})

	t.Run("trims the parcel id", func(t *testing.T) {
		l, err := NewLand("land-1", "  P1  ", "owner-1", 500, UsageFarming, Location{}, t0)
		require.NoError(t, err)
		assert.Equal(t, "P1", l.ParcelID)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := NewLand("land-1", "   ", "owner-1", 500, UsageFarming, Location{}, t0)
		assert.Error(t, err)

		_, err = NewLand("land-1", "P1", "owner-1", 0, UsageFarming, Location{}, t0)
		assert.Error(t, err)

		_, err = NewLand("land-1", "P1", "owner-1", 500, UsageType("industrial"), Location{}, t0)
		assert.Error(t, err)
	})
}

func TestApplyApproval(t *testing.T) {
	t.Run("activates and opens the first ledger entry", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)

		assert.Equal(t, StatusActive, l.Status)
		assert.Equal(t, "admin-1", l.ApprovedBy)
		require.Len(t, l.OwnershipHistory, 1)
		assert.Equal(t, "owner-1", l.OwnershipHistory[0].OwnerID)
		assert.True(t, l.OwnershipHistory[0].Open())
		assert.NoError(t, l.CheckHistory())
	})

	t.Run("re-approval does not open a second entry", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)
		l.ApplyApproval("admin-2", t0.Add(time.Hour))

		assert.Equal(t, StatusActive, l.Status)
		assert.Equal(t, "admin-2", l.ApprovedBy)
		assert.Len(t, l.OwnershipHistory, 1)
	})
}

func TestSetForSale(t *testing.T) {
	t.Run("records and returns the previous status", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)

		previous := l.ApplySetForSale(t0.Add(time.Hour))
		assert.Equal(t, StatusActive, previous)
		assert.Equal(t, StatusForSale, l.Status)
	})

	t.Run("is blocked while on dispute", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)
		l.ApplyMarkOnDispute(t0.Add(time.Hour))

		assert.Error(t, l.CanSetForSale())
	})
}

func TestClearDispute(t *testing.T) {
	t.Run("restores active while still disputed", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)
		l.ApplyMarkOnDispute(t0)

		assert.True(t, l.ApplyClearDispute(t0.Add(time.Hour)))
		assert.Equal(t, StatusActive, l.Status)
	})

	t.Run("never clobbers a status that moved on", func(t *testing.T) {
		l := newTestLand(t)
		l.ApplyApproval("admin-1", t0)
		l.ApplyMarkOnDispute(t0)
		l.ApplyClearDispute(t0)
		l.ApplySetForSale(t0)

		assert.False(t, l.ApplyClearDispute(t0.Add(time.Hour)))
		assert.Equal(t, StatusForSale, l.Status)
	})
}

func TestApplyOwnershipTransfer(t *testing.T) {
	l := newTestLand(t)
	l.ApplyApproval("admin-1", t0)
	l.ApplySetForSale(t0)

	handover := t0.Add(48 * time.Hour)
	l.ApplyOwnershipTransfer("owner-2", "admin-1", handover)

	assert.Equal(t, "owner-2", l.OwnerID)
	assert.Equal(t, StatusActive, l.Status)
	require.Len(t, l.OwnershipHistory, 2)

	first, second := l.OwnershipHistory[0], l.OwnershipHistory[1]
	require.NotNil(t, first.ToDate)
	assert.Equal(t, handover, *first.ToDate)
	assert.Equal(t, "owner-1", first.OwnerID)
	assert.True(t, second.Open())
	assert.Equal(t, "owner-2", second.OwnerID)
	assert.NoError(t, l.CheckHistory())
}

func TestPatchApply(t *testing.T) {
	t.Run("applies fields independently", func(t *testing.T) {
		l := newTestLand(t)
		size := 750.0
		usage := "farming"
		require.NoError(t, Patch{SizeSqm: &size, UsageType: &usage}.Apply(l, t0))
		assert.Equal(t, 750.0, l.SizeSqm)
		assert.Equal(t, UsageFarming, l.UsageType)
		assert.Equal(t, "P1", l.ParcelID)
	})

	t.Run("rejects empty rename", func(t *testing.T) {
		l := newTestLand(t)
		blank := "   "
		assert.Error(t, Patch{ParcelID: &blank}.Apply(l, t0))
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		l := newTestLand(t)
		size := -1.0
		assert.Error(t, Patch{SizeSqm: &size}.Apply(l, t0))
	})
}
