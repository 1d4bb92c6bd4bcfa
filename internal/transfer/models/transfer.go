// Package models holds the Transfer record: a proposed sale of a parcel,
// its bid book, and the admin approval that completes it.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotSeller rejects a confirm or cancel attempted by someone other than
// the recorded seller.
var ErrNotSeller = errors.New("only the seller can act on this transfer")

// ErrNotActive rejects bid, confirm and approve attempts on a closed
// transfer.
var ErrNotActive = errors.New("transfer is no longer active")

// TransferStatus is the lifecycle state of a transfer. Sold and canceled are
// terminal.
type TransferStatus string

const (
	// StatusActive is an open sale: bids and buyer confirmation happen here.
	StatusActive TransferStatus = "active"

	// StatusSold is set by admin approval; ownership has moved.
	StatusSold TransferStatus = "sold"

	// StatusCanceled is set when the seller withdraws before approval.
	StatusCanceled TransferStatus = "canceled"
)

// Bid is one offer in the bid book. The book is append-only: a buyer may bid
// any number of times and the seller picks manually, there is no
// highest-bid rule.
type Bid struct {
	BuyerCitizenID string          `json:"buyer_citizen_id"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Transfer is the sale aggregate. ParcelID and the citizen ids are
// references; the workflow resolves them against the registry and the
// identity store.
type Transfer struct {
	ID                 string         `json:"id"`
	ParcelID           string         `json:"parcel_id"`
	Status             TransferStatus `json:"status"`
	SellerCitizenID    string         `json:"seller_citizen_id"`
	BuyerCitizenID     string         `json:"buyer_citizen_id,omitempty"`
	PreviousLandStatus string         `json:"previous_land_status"`
	Bids               []Bid          `json:"bids"`
	AdminApproved      string         `json:"admin_approved,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewTransfer opens a sale. The buyer may be pre-selected or left empty for
// open bidding. previousLandStatus is whatever the parcel showed before the
// listing; cancellation restores it.
func NewTransfer(id, sellerCitizenID, parcelID, buyerCitizenID, previousLandStatus string, now time.Time) (*Transfer, error) {
	sellerCitizenID = strings.TrimSpace(sellerCitizenID)
	parcelID = strings.TrimSpace(parcelID)
	if sellerCitizenID == "" {
		return nil, errors.New("seller citizen id is required")
	}
	if parcelID == "" {
		return nil, errors.New("parcel id is required")
	}

	return &Transfer{
		ID:                 id,
		ParcelID:           parcelID,
		Status:             StatusActive,
		SellerCitizenID:    sellerCitizenID,
		BuyerCitizenID:     strings.TrimSpace(buyerCitizenID),
		PreviousLandStatus: previousLandStatus,
		Bids:               []Bid{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanBid reports whether the bid book is still open.
func (t *Transfer) CanBid() error {
	if t.Status != StatusActive {
		return ErrNotActive
	}
	return nil
}

// ApplyBid appends to the bid book.
func (t *Transfer) ApplyBid(buyerCitizenID string, amount decimal.Decimal, now time.Time) error {
	buyerCitizenID = strings.TrimSpace(buyerCitizenID)
	if buyerCitizenID == "" {
		return errors.New("buyer citizen id is required")
	}
	if amount.IsNegative() {
		return errors.New("bid amount cannot be negative")
	}
	t.Bids = append(t.Bids, Bid{
		BuyerCitizenID: buyerCitizenID,
		Amount:         amount,
		CreatedAt:      now,
	})
	t.UpdatedAt = now
	return nil
}

// HasBidder reports whether the citizen appears in the bid book.
func (t *Transfer) HasBidder(citizenID string) bool {
	for _, b := range t.Bids {
		if b.BuyerCitizenID == citizenID {
			return true
		}
	}
	return false
}

// CanConfirm reports whether the seller may pick a buyer: only the recorded
// seller, and only while the transfer is active.
func (t *Transfer) CanConfirm(sellerCitizenID string) error {
	if t.SellerCitizenID != sellerCitizenID {
		return ErrNotSeller
	}
	if t.Status != StatusActive {
		return ErrNotActive
	}
	return nil
}

// ApplyConfirm records the chosen buyer. The status stays active; the sale
// completes only with admin approval.
func (t *Transfer) ApplyConfirm(buyerCitizenID string, now time.Time) {
	t.BuyerCitizenID = buyerCitizenID
	t.UpdatedAt = now
}

// Cancelable reports whether this transfer matches a seller's cancel
// request: still active, owned by that seller, and not yet admin-approved.
func (t *Transfer) Cancelable(sellerCitizenID string) bool {
	return t.Status == StatusActive && t.SellerCitizenID == sellerCitizenID && t.AdminApproved == ""
}

// ApplyCancel withdraws the sale.
func (t *Transfer) ApplyCancel(now time.Time) {
	t.Status = StatusCanceled
	t.UpdatedAt = now
}

// CanApprove reports whether an admin may complete the sale.
func (t *Transfer) CanApprove() error {
	if t.Status != StatusActive {
		return ErrNotActive
	}
	return nil
}

// ApplyApprove completes the sale.
func (t *Transfer) ApplyApprove(adminID string, now time.Time) {
	t.Status = StatusSold
	t.AdminApproved = adminID
	t.UpdatedAt = now
}

// AwaitingApproval reports whether the transfer sits in the admin's queue: a
// confirmed buyer on a still-active sale.
func (t *Transfer) AwaitingApproval() bool {
	return t.Status == StatusActive && t.BuyerCitizenID != ""
}

// Involves reports whether the citizen is a party to the sale.
func (t *Transfer) Involves(citizenID string) bool {
	return t.SellerCitizenID == citizenID || t.BuyerCitizenID == citizenID
}
