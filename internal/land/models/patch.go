package models

import (
	"errors"
	"strings"
	"time"
)

// Patch carries the sparse edits an admin may apply while reviewing a
// parcel. Each field validates independently; a nil field is left alone.
type Patch struct {
	ParcelID  *string   `json:"parcel_id,omitempty"`
	SizeSqm   *float64  `json:"size_sqm,omitempty"`
	UsageType *string   `json:"usage_type,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.ParcelID == nil && p.SizeSqm == nil && p.UsageType == nil && p.Location == nil
}

// RenamesParcel reports whether the patch changes the parcel id.
func (p Patch) RenamesParcel() bool {
	return p.ParcelID != nil
}

// Apply validates and applies the patch field by field.
func (p Patch) Apply(l *Land, now time.Time) error {
	if p.ParcelID != nil {
		renamed := strings.TrimSpace(*p.ParcelID)
		if renamed == "" {
			return errors.New("parcel id cannot be renamed to empty")
		}
		l.ParcelID = renamed
	}
	if p.SizeSqm != nil {
		if *p.SizeSqm <= 0 {
			return errors.New("size must be greater than zero")
		}
		l.SizeSqm = *p.SizeSqm
	}
	if p.UsageType != nil {
		usage, err := ParseUsageType(*p.UsageType)
		if err != nil {
			return err
		}
		l.UsageType = usage
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	l.UpdatedAt = now
	return nil
}
