// Package service is the land registry: the sole owner of Land status and
// the ownership ledger. Dispute and transfer features request status changes
// through the narrow mutation methods here and never write Land fields
// themselves.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"landregistry/internal/audit"
	identitymodels "landregistry/internal/identity/models"
	"landregistry/internal/land/metrics"
	"landregistry/internal/land/models"
	"landregistry/internal/land/store"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/requestcontext"
)

var tracer = otel.Tracer("landregistry/internal/land")

// Store persists lands. Implementations return sentinel errors; the service
// translates them into coded domain errors.
type Store interface {
	Create(ctx context.Context, l *models.Land) error
	FindByParcelID(ctx context.Context, parcelID string) (*models.Land, error)
	Execute(ctx context.Context, parcelID string, validate func(*models.Land) error, mutate func(*models.Land)) (*models.Land, error)
	List(ctx context.Context, q store.Query) ([]*models.Land, int, error)
}

// Users is the slice of the identity feature the registry needs: owner
// resolution for listings and the sparse profile edits an admin may apply
// during parcel review.
type Users interface {
	FindByID(ctx context.Context, id string) (*identitymodels.User, error)
	UpdateProfile(ctx context.Context, userID string, patch identitymodels.ProfilePatch) (*identitymodels.User, error)
}

// Service owns all Land mutations.
type Service struct {
	lands   Store
	users   Users
	auditor *audit.Emitter
	metrics *metrics.Metrics
}

func New(lands Store, users Users, auditor *audit.Emitter, m *metrics.Metrics) *Service {
	return &Service{lands: lands, users: users, auditor: auditor, metrics: m}
}

// RegisterInput carries the owner-supplied registration fields.
type RegisterInput struct {
	OwnerID   string
	ParcelID  string
	SizeSqm   float64
	UsageType string
	Location  models.Location
}

// Register creates a parcel in the waiting state. The parcel id must be
// globally unique.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Land, error) {
	ctx, span := tracer.Start(ctx, "land.Register")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", in.ParcelID))

	usage, err := models.ParseUsageType(in.UsageType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}

	now := requestcontext.Now(ctx)
	l, err := models.NewLand(uuid.NewString(), in.ParcelID, in.OwnerID, in.SizeSqm, usage, in.Location, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}

	if err := s.lands.Create(ctx, l); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "parcel %q is already registered", l.ParcelID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register land")
	}

	s.metrics.IncrementRegistration(string(l.UsageType))
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionLandRegistered,
		ActorID:   in.OwnerID,
		SubjectID: l.ID,
		ParcelID:  l.ParcelID,
	})
	return l, nil
}

// Approve activates a parcel, recording the approving admin. Sparse parcel
// edits and owner profile corrections are applied as part of the review.
// Re-approval of an already active parcel is tolerated.
func (s *Service) Approve(ctx context.Context, parcelID, adminID string, edits models.Patch, ownerEdits identitymodels.ProfilePatch) (*models.Land, error) {
	ctx, span := tracer.Start(ctx, "land.Approve")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	now := requestcontext.Now(ctx)

	var editErr error
	l, err := s.lands.Execute(ctx, parcelID,
		func(l *models.Land) error {
			work := *l
			editErr = edits.Apply(&work, now)
			return editErr
		},
		func(l *models.Land) {
			_ = edits.Apply(l, now)
			l.ApplyApproval(adminID, now)
		},
	)
	if err != nil {
		if editErr != nil {
			return nil, dErrors.Wrap(editErr, dErrors.CodeBadRequest, editErr.Error())
		}
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.Newf(dErrors.CodeConflict, "parcel id %q is already registered", *edits.ParcelID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve land")
	}

	if !ownerEdits.IsZero() {
		if _, err := s.users.UpdateProfile(ctx, l.OwnerID, ownerEdits); err != nil {
			return nil, err
		}
	}

	s.metrics.IncrementTransition(string(models.StatusActive))
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionLandApproved,
		ActorID:   adminID,
		SubjectID: l.ID,
		ParcelID:  l.ParcelID,
	})
	return l, nil
}

// TransferOwnership hands the parcel to a new owner: closes the open ledger
// entry, opens one for the new owner, and returns the parcel to active. Only
// the transfer workflow's approval path calls this.
func (s *Service) TransferOwnership(ctx context.Context, parcelID, newOwnerID, adminID string) (*models.Land, error) {
	ctx, span := tracer.Start(ctx, "land.TransferOwnership")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	now := requestcontext.Now(ctx)
	var invariantErr error
	l, err := s.lands.Execute(ctx, parcelID,
		func(l *models.Land) error {
			invariantErr = l.CheckHistory()
			return invariantErr
		},
		func(l *models.Land) { l.ApplyOwnershipTransfer(newOwnerID, adminID, now) },
	)
	if err != nil {
		if invariantErr != nil {
			return nil, dErrors.Wrap(invariantErr, dErrors.CodeInvariantViolation, invariantErr.Error())
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
	}

	s.metrics.IncrementOwnershipTransfer()
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionOwnershipTransferred,
		ActorID:   adminID,
		SubjectID: newOwnerID,
		ParcelID:  l.ParcelID,
	})
	return l, nil
}

// MarkOnDispute flips the parcel to onDispute. Requested by the dispute
// ledger when a dispute is filed.
func (s *Service) MarkOnDispute(ctx context.Context, parcelID string) error {
	ctx, span := tracer.Start(ctx, "land.MarkOnDispute")
	defer span.End()

	now := requestcontext.Now(ctx)
	l, err := s.lands.Execute(ctx, parcelID,
		func(*models.Land) error { return nil },
		func(l *models.Land) { l.ApplyMarkOnDispute(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark land on dispute")
	}

	s.metrics.IncrementTransition(string(models.StatusOnDispute))
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionLandDisputed, ParcelID: l.ParcelID})
	return nil
}

// ClearDispute restores the parcel to active, but only if it is still
// onDispute. A parcel whose status moved on concurrently keeps it; the bool
// reports whether a restore happened.
func (s *Service) ClearDispute(ctx context.Context, parcelID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "land.ClearDispute")
	defer span.End()

	now := requestcontext.Now(ctx)
	restored := false
	l, err := s.lands.Execute(ctx, parcelID,
		func(*models.Land) error { return nil },
		func(l *models.Land) { restored = l.ApplyClearDispute(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear dispute status")
	}

	if restored {
		s.metrics.IncrementTransition(string(models.StatusActive))
		s.auditor.Emit(ctx, audit.Event{Action: audit.ActionLandDisputeCleared, ParcelID: l.ParcelID})
	}
	return restored, nil
}

// SetForSale lists the parcel and returns the status it had before, which
// the transfer keeps so a cancellation can restore it. A disputed parcel
// cannot be listed.
func (s *Service) SetForSale(ctx context.Context, parcelID string) (models.LandStatus, error) {
	ctx, span := tracer.Start(ctx, "land.SetForSale")
	defer span.End()

	now := requestcontext.Now(ctx)
	var previous models.LandStatus
	var stateErr error
	l, err := s.lands.Execute(ctx, parcelID,
		func(l *models.Land) error {
			stateErr = l.CanSetForSale()
			return stateErr
		},
		func(l *models.Land) { previous = l.ApplySetForSale(now) },
	)
	if err != nil {
		if stateErr != nil {
			return "", dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list land for sale")
	}

	s.metrics.IncrementTransition(string(models.StatusForSale))
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionLandListedForSale, ParcelID: l.ParcelID})
	return previous, nil
}

// RestoreStatus puts back the status a listing replaced. Requested by the
// transfer workflow when a seller cancels.
func (s *Service) RestoreStatus(ctx context.Context, parcelID string, previous models.LandStatus) error {
	ctx, span := tracer.Start(ctx, "land.RestoreStatus")
	defer span.End()

	now := requestcontext.Now(ctx)
	l, err := s.lands.Execute(ctx, parcelID,
		func(*models.Land) error { return nil },
		func(l *models.Land) { l.ApplyRestoreStatus(previous, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore land status")
	}

	s.metrics.IncrementTransition(string(l.Status))
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionLandStatusRestored, ParcelID: l.ParcelID, Detail: string(l.Status)})
	return nil
}

// GetByParcelID loads one parcel.
func (s *Service) GetByParcelID(ctx context.Context, parcelID string) (*models.Land, error) {
	l, err := s.lands.FindByParcelID(ctx, parcelID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no land with parcel id %q", parcelID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load land")
	}
	return l, nil
}

// ListByOwner pages through one owner's parcels, optionally narrowed to a
// single status.
func (s *Service) ListByOwner(ctx context.Context, ownerID, status string, page pagination.Page) (pagination.Result[*models.Land], error) {
	var filter models.LandStatus
	if status != "" {
		parsed, err := models.ParseLandStatus(status)
		if err != nil {
			return pagination.Result[*models.Land]{}, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
		}
		filter = parsed
	}

	items, total, err := s.lands.List(ctx, store.Query{OwnerID: ownerID, Status: filter, Page: page})
	if err != nil {
		return pagination.Result[*models.Land]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lands")
	}
	return pagination.NewResult(page, total, items), nil
}

// LandWithOwner is the admin listing projection: the parcel plus a summary
// of its current owner.
type LandWithOwner struct {
	*models.Land
	Owner OwnerSummary `json:"owner"`
}

// OwnerSummary is the slice of the owning user shown in admin listings.
type OwnerSummary struct {
	ID          string `json:"id"`
	CitizenID   string `json:"citizen_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// List pages through parcels, optionally filtered by status, with the owner
// resolved onto each row. Admin use.
func (s *Service) List(ctx context.Context, status string, page pagination.Page) (pagination.Result[LandWithOwner], error) {
	var zero pagination.Result[LandWithOwner]

	var filter models.LandStatus
	if status != "" {
		parsed, err := models.ParseLandStatus(status)
		if err != nil {
			return zero, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
		}
		filter = parsed
	}

	items, total, err := s.lands.List(ctx, store.Query{Status: filter, Page: page})
	if err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lands")
	}

	out := make([]LandWithOwner, 0, len(items))
	for _, l := range items {
		row := LandWithOwner{Land: l}
		if owner, err := s.users.FindByID(ctx, l.OwnerID); err == nil {
			row.Owner = OwnerSummary{
				ID:          owner.ID,
				CitizenID:   owner.CitizenID,
				Name:        owner.Name,
				Email:       owner.Email,
				PhoneNumber: owner.PhoneNumber,
			}
		}
		out = append(out, row)
	}
	return pagination.NewResult(page, total, out), nil
}
