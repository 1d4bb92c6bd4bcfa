// Package models holds the Dispute record and its lifecycle.
package models

import (
	"errors"
	"strings"
	"time"
)

// DisputeStatus is the lifecycle state of a dispute. Both solved and Dropped
// are terminal.
type DisputeStatus string

const (
	// StatusWaiting is the state every dispute starts in.
	StatusWaiting DisputeStatus = "waiting"

	// StatusSolved is set by an admin resolution.
	StatusSolved DisputeStatus = "solved"

	// StatusDropped is set when the raiser withdraws the dispute. The
	// capitalization is part of the stored vocabulary; clients match on it.
	StatusDropped DisputeStatus = "Dropped"
)

// Dispute is a formal challenge against a parcel's registration or
// ownership. ParcelID and the citizen ids are references, not foreign keys;
// the service resolves them at filing time.
type Dispute struct {
	ID                 string        `json:"id"`
	FileURL            string        `json:"file_url"`
	ParcelID           string        `json:"parcel_id"`
	LandOwnerCitizenID string        `json:"land_owner_citizen_id"`
	RaisedByCitizenID  string        `json:"raised_by_citizen_id"`
	Status             DisputeStatus `json:"status"`
	AdminApproved      string        `json:"admin_approved,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	DeletedAt          *time.Time    `json:"deleted_at,omitempty"`
}

// NewDispute builds a waiting dispute. Every string field is required.
func NewDispute(id, fileURL, parcelID, landOwnerCitizenID, raisedByCitizenID string, now time.Time) (*Dispute, error) {
	fileURL = strings.TrimSpace(fileURL)
	parcelID = strings.TrimSpace(parcelID)
	landOwnerCitizenID = strings.TrimSpace(landOwnerCitizenID)
	raisedByCitizenID = strings.TrimSpace(raisedByCitizenID)

	switch {
	case fileURL == "":
		return nil, errors.New("file url is required")
	case parcelID == "":
		return nil, errors.New("parcel id is required")
	case landOwnerCitizenID == "":
		return nil, errors.New("land owner citizen id is required")
	case raisedByCitizenID == "":
		return nil, errors.New("raiser citizen id is required")
	}

	return &Dispute{
		ID:                 id,
		FileURL:            fileURL,
		ParcelID:           parcelID,
		LandOwnerCitizenID: landOwnerCitizenID,
		RaisedByCitizenID:  raisedByCitizenID,
		Status:             StatusWaiting,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanResolve reports whether the dispute is still open.
func (d *Dispute) CanResolve() error {
	if d.Status != StatusWaiting {
		return errors.New("dispute is already closed")
	}
	return nil
}

// ApplyResolve marks the dispute solved by the given admin. Resolution does
// not touch the parcel's status; that is the dropping path's job.
func (d *Dispute) ApplyResolve(adminID string, now time.Time) {
	d.Status = StatusSolved
	d.AdminApproved = adminID
	d.UpdatedAt = now
}

// CanDrop reports whether the dispute is still open.
func (d *Dispute) CanDrop() error {
	if d.Status != StatusWaiting {
		return errors.New("dispute is already closed")
	}
	return nil
}

// ApplyDrop withdraws the dispute and soft-deletes it.
func (d *Dispute) ApplyDrop(now time.Time) {
	d.Status = StatusDropped
	d.DeletedAt = &now
	d.UpdatedAt = now
}

// IsDeleted reports whether the dispute has been soft-deleted.
func (d *Dispute) IsDeleted() bool { return d.DeletedAt != nil }

// Involves reports whether the citizen is a party to the dispute, as either
// the parcel owner or the raiser.
func (d *Dispute) Involves(citizenID string) bool {
	return d.LandOwnerCitizenID == citizenID || d.RaisedByCitizenID == citizenID
}
