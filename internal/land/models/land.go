// Package models holds the Land aggregate: status, location and the
// ownership-history ledger. Status and ownership history are only ever
// mutated through the Apply methods below; other features go through the
// land service, never through direct field writes.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LandStatus is the lifecycle state of a parcel.
type LandStatus string

const (
	// StatusWaitingApproval is the state every parcel starts in. Only an
	// admin approval moves it forward.
	StatusWaitingApproval LandStatus = "waitingToBeApproved"

	// StatusActive is a registered, undisputed, unlisted parcel.
	StatusActive LandStatus = "active"

	// StatusForSale marks a parcel with an open transfer.
	StatusForSale LandStatus = "forSell"

	// StatusOnDispute marks a parcel with an open dispute. Disputed parcels
	// cannot be listed for sale.
	StatusOnDispute LandStatus = "onDispute"
)

// ParseLandStatus validates a status string.
func ParseLandStatus(s string) (LandStatus, error) {
	switch LandStatus(s) {
	case StatusWaitingApproval, StatusActive, StatusForSale, StatusOnDispute:
		return LandStatus(s), nil
	}
	return "", fmt.Errorf("unknown land status %q", s)
}

// UsageType is the declared use of a parcel.
type UsageType string

const (
	UsageBusiness    UsageType = "business"
	UsageFarming     UsageType = "farming"
	UsageResidential UsageType = "residential"
)

// ParseUsageType validates a usage-type string.
func ParseUsageType(s string) (UsageType, error) {
	switch UsageType(s) {
	case UsageBusiness, UsageFarming, UsageResidential:
		return UsageType(s), nil
	}
	return "", fmt.Errorf("usage type must be one of business, farming, residential; got %q", s)
}

// GPS is a point coordinate.
type GPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location describes where a parcel is.
type Location struct {
	Address string `json:"address"`
	GPS     GPS    `json:"gps"`
}

// OwnershipEntry is one row of the ownership ledger. A nil ToDate marks the
// open entry, the ownership that is still ongoing.
type OwnershipEntry struct {
	OwnerID  string     `json:"owner_id"`
	FromDate time.Time  `json:"from_date"`
	ToDate   *time.Time `json:"to_date,omitempty"`
}

// Open reports whether this entry is the ongoing one.
func (e OwnershipEntry) Open() bool { return e.ToDate == nil }

// Land is the parcel aggregate.
type Land struct {
	ID               string           `json:"id"`
	ParcelID         string           `json:"parcel_id"`
	OwnerID          string           `json:"owner_id"`
	Location         Location         `json:"location"`
	SizeSqm          float64          `json:"size_sqm"`
	UsageType        UsageType        `json:"usage_type"`
	Status           LandStatus       `json:"status"`
	ApprovedBy       string           `json:"approved_by,omitempty"`
	OwnershipHistory []OwnershipEntry `json:"ownership_history"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewLand builds a parcel in the waiting state with an empty ownership
// ledger. The first ledger entry is opened at approval time.
func NewLand(id, parcelID, ownerID string, sizeSqm float64, usage UsageType, loc Location, now time.Time) (*Land, error) {
	parcelID = strings.TrimSpace(parcelID)
	if parcelID == "" {
		return nil, errors.New("parcel id is required")
	}
	if ownerID == "" {
		return nil, errors.New("owner id is required")
	}
	if sizeSqm <= 0 {
		return nil, errors.New("size must be greater than zero")
	}
	if _, err := ParseUsageType(string(usage)); err != nil {
		return nil, err
	}
	return &Land{
		ID:               id,
		ParcelID:         parcelID,
		OwnerID:          ownerID,
		Location:         loc,
		SizeSqm:          sizeSqm,
		UsageType:        usage,
		Status:           StatusWaitingApproval,
		OwnershipHistory: []OwnershipEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApplyApproval activates the parcel and records the approving admin.
// Re-approval is tolerated from any status. If the ownership ledger is still
// empty, the first open entry is created for the current owner.
func (l *Land) ApplyApproval(adminID string, now time.Time) {
	l.Status = StatusActive
	l.ApprovedBy = adminID
	if len(l.OwnershipHistory) == 0 {
		l.OwnershipHistory = append(l.OwnershipHistory, OwnershipEntry{
			OwnerID:  l.OwnerID,
			FromDate: now,
		})
	}
	l.UpdatedAt = now
}

// CanSetForSale reports whether the parcel may be listed. A dispute blocks
// listing.
func (l *Land) CanSetForSale() error {
	if l.Status == StatusOnDispute {
		return errors.New("land is on dispute and cannot be listed for sale")
	}
	return nil
}

// ApplySetForSale flips the status to forSell and returns the status it
// replaced, which the transfer keeps for restoration on cancel.
func (l *Land) ApplySetForSale(now time.Time) LandStatus {
	previous := l.Status
	l.Status = StatusForSale
	l.UpdatedAt = now
	return previous
}

// ApplyRestoreStatus puts back the status recorded before a listing.
func (l *Land) ApplyRestoreStatus(previous LandStatus, now time.Time) {
	if previous == "" {
		previous = StatusActive
	}
	l.Status = previous
	l.UpdatedAt = now
}

// ApplyMarkOnDispute flips the status to onDispute.
func (l *Land) ApplyMarkOnDispute(now time.Time) {
	l.Status = StatusOnDispute
	l.UpdatedAt = now
}

// ApplyClearDispute restores the parcel to active, but only if it is still
// onDispute. A parcel that moved on in the meantime keeps its current status.
// Returns whether a restore happened.
func (l *Land) ApplyClearDispute(now time.Time) bool {
	if l.Status != StatusOnDispute {
		return false
	}
	l.Status = StatusActive
	l.UpdatedAt = now
	return true
}

// ApplyOwnershipTransfer closes the open ledger entry, opens one for the new
// owner, and hands the parcel over in active status.
func (l *Land) ApplyOwnershipTransfer(newOwnerID, adminID string, now time.Time) {
	if i := l.openEntryIndex(); i >= 0 {
		to := now
		l.OwnershipHistory[i].ToDate = &to
	}
	l.OwnershipHistory = append(l.OwnershipHistory, OwnershipEntry{
		OwnerID:  newOwnerID,
		FromDate: now,
	})
	l.OwnerID = newOwnerID
	l.Status = StatusActive
	l.ApprovedBy = adminID
	l.UpdatedAt = now
}

// CheckHistory verifies the ledger invariant: at most one open entry, and it
// must name the current owner.
func (l *Land) CheckHistory() error {
	open := -1
	for i, e := range l.OwnershipHistory {
		if !e.Open() {
			continue
		}
		if open >= 0 {
			return fmt.Errorf("parcel %s has more than one open ownership entry", l.ParcelID)
		}
		open = i
	}
	if open >= 0 && l.OwnershipHistory[open].OwnerID != l.OwnerID {
		return fmt.Errorf("parcel %s open ownership entry names %s, owner is %s",
			l.ParcelID, l.OwnershipHistory[open].OwnerID, l.OwnerID)
	}
	return nil
}

func (l *Land) openEntryIndex() int {
	for i, e := range l.OwnershipHistory {
		if e.Open() {
			return i
		}
	}
	return -1
}
