// Package service is the transfer workflow: a seller lists a parcel, buyers
// bid, the seller confirms one, and an admin approval moves ownership. Every
// land side effect goes through the registry inside a transactional unit
// keyed by the parcel.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Registry,Users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"landregistry/internal/audit"
	identitymodels "landregistry/internal/identity/models"
	landmodels "landregistry/internal/land/models"
	"landregistry/internal/transfer/metrics"
	"landregistry/internal/transfer/models"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
	"landregistry/pkg/requestcontext"
)

var tracer = otel.Tracer("landregistry/internal/transfer")

// Store persists transfers.
type Store interface {
	Create(ctx context.Context, t *models.Transfer) error
	FindByID(ctx context.Context, id string) (*models.Transfer, error)
	Execute(ctx context.Context, id string, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error)
	ListByCitizen(ctx context.Context, citizenID string, page pagination.Page) ([]*models.Transfer, int, error)
	ListAwaitingApproval(ctx context.Context, page pagination.Page) ([]*models.Transfer, int, error)
	ListAll(ctx context.Context, page pagination.Page) ([]*models.Transfer, int, error)
}

// Registry is the slice of the land registry the workflow calls into.
// Transfers never write Land fields directly.
type Registry interface {
	SetForSale(ctx context.Context, parcelID string) (landmodels.LandStatus, error)
	RestoreStatus(ctx context.Context, parcelID string, previous landmodels.LandStatus) error
	TransferOwnership(ctx context.Context, parcelID, newOwnerID, adminID string) (*landmodels.Land, error)
}

// Users resolves the confirmed buyer at approval time.
type Users interface {
	FindByCitizenID(ctx context.Context, citizenID string) (*identitymodels.User, error)
}

// Service owns the transfer lifecycle.
type Service struct {
	transfers Store
	registry  Registry
	users     Users
	runner    tx.Runner
	auditor   *audit.Emitter
	metrics   *metrics.Metrics
}

func New(transfers Store, registry Registry, users Users, runner tx.Runner, auditor *audit.Emitter, m *metrics.Metrics) *Service {
	return &Service{transfers: transfers, registry: registry, users: users, runner: runner, auditor: auditor, metrics: m}
}

// OpenInput carries the listing fields. BuyerCitizenID may be empty for open
// bidding.
type OpenInput struct {
	SellerCitizenID string
	ParcelID        string
	BuyerCitizenID  string
}

// Open lists the parcel for sale and creates the transfer. The status the
// parcel had before is recorded on the transfer for restoration on cancel.
// A disputed parcel cannot be listed.
func (s *Service) Open(ctx context.Context, in OpenInput) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.Open")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", in.ParcelID))

	now := requestcontext.Now(ctx)
	var t *models.Transfer
	err := s.runner.RunInTx(ctx, strings.TrimSpace(in.ParcelID), func(ctx context.Context) error {
		previous, err := s.registry.SetForSale(ctx, strings.TrimSpace(in.ParcelID))
		if err != nil {
			return err
		}

		t, err = models.NewTransfer(uuid.NewString(), in.SellerCitizenID, in.ParcelID, in.BuyerCitizenID, string(previous), now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
		}
		if err := s.transfers.Create(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementOutcome("opened")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionTransferOpened,
		ActorID:   in.SellerCitizenID,
		SubjectID: t.ID,
		ParcelID:  t.ParcelID,
	})
	return t, nil
}

// PlaceBid appends to the bid book. The book is append-only with no dedup; a
// buyer may raise or lower by simply bidding again.
func (s *Service) PlaceBid(ctx context.Context, transferID, buyerCitizenID string, amount decimal.Decimal) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.PlaceBid")
	defer span.End()

	buyerCitizenID = strings.TrimSpace(buyerCitizenID)
	if buyerCitizenID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "buyer citizen id is required")
	}
	if amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "bid amount cannot be negative")
	}

	now := requestcontext.Now(ctx)
	var stateErr error
	t, err := s.transfers.Execute(ctx, transferID,
		func(t *models.Transfer) error {
			stateErr = t.CanBid()
			return stateErr
		},
		func(t *models.Transfer) { _ = t.ApplyBid(buyerCitizenID, amount, now) },
	)
	if err != nil {
		if stateErr != nil {
			return nil, dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no transfer with id %q", transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to place bid")
	}

	s.metrics.ObserveBid(amount.InexactFloat64())
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionBidPlaced,
		ActorID:   buyerCitizenID,
		SubjectID: t.ID,
		ParcelID:  t.ParcelID,
		Detail:    amount.String(),
	})
	return t, nil
}

// Confirm records the seller's chosen buyer. The buyer must appear in the
// bid book or have been pre-selected at opening. The transfer stays active,
// awaiting admin approval.
func (s *Service) Confirm(ctx context.Context, transferID, sellerCitizenID, chosenBuyerCitizenID string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.Confirm")
	defer span.End()

	chosenBuyerCitizenID = strings.TrimSpace(chosenBuyerCitizenID)
	if chosenBuyerCitizenID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "buyer citizen id is required")
	}

	now := requestcontext.Now(ctx)
	var stateErr, pickErr error
	t, err := s.transfers.Execute(ctx, transferID,
		func(t *models.Transfer) error {
			if stateErr = t.CanConfirm(sellerCitizenID); stateErr != nil {
				return stateErr
			}
			if !t.HasBidder(chosenBuyerCitizenID) && t.BuyerCitizenID != chosenBuyerCitizenID {
				pickErr = errors.New("chosen buyer has not bid on this transfer")
				return pickErr
			}
			return nil
		},
		func(t *models.Transfer) { t.ApplyConfirm(chosenBuyerCitizenID, now) },
	)
	if err != nil {
		switch {
		case pickErr != nil:
			return nil, dErrors.Wrap(pickErr, dErrors.CodeBadRequest, pickErr.Error())
		case errors.Is(stateErr, models.ErrNotSeller):
			return nil, dErrors.Wrap(stateErr, dErrors.CodeForbidden, stateErr.Error())
		case stateErr != nil:
			return nil, dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no transfer with id %q", transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm transfer")
	}

	s.metrics.IncrementOutcome("confirmed")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionTransferConfirmed,
		ActorID:   sellerCitizenID,
		SubjectID: t.ID,
		ParcelID:  t.ParcelID,
		Detail:    chosenBuyerCitizenID,
	})
	return t, nil
}

// Cancel withdraws a sale and restores the parcel's pre-listing status. The
// request only matches a still-active, not-yet-approved transfer belonging
// to this seller; anything else is reported as not found.
func (s *Service) Cancel(ctx context.Context, transferID, sellerCitizenID string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.Cancel")
	defer span.End()

	existing, err := s.transfers.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNoCancelable(transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
	}

	now := requestcontext.Now(ctx)
	var canceled *models.Transfer
	err = s.runner.RunInTx(ctx, existing.ParcelID, func(ctx context.Context) error {
		var matchErr error
		t, err := s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error {
				if !t.Cancelable(sellerCitizenID) {
					matchErr = errNoCancelable(transferID)
					return matchErr
				}
				return nil
			},
			func(t *models.Transfer) { t.ApplyCancel(now) },
		)
		if err != nil {
			if matchErr != nil {
				return matchErr
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return errNoCancelable(transferID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel transfer")
		}
		canceled = t

		previous := landmodels.LandStatus(t.PreviousLandStatus)
		return s.registry.RestoreStatus(ctx, t.ParcelID, previous)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementOutcome("canceled")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionTransferCanceled,
		ActorID:   sellerCitizenID,
		SubjectID: canceled.ID,
		ParcelID:  canceled.ParcelID,
	})
	return canceled, nil
}

// Approve completes the sale: resolves the confirmed buyer, moves ownership
// through the registry, and marks the transfer sold. The two writes commit
// together or not at all.
func (s *Service) Approve(ctx context.Context, transferID, adminID string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.Approve")
	defer span.End()

	existing, err := s.transfers.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no transfer with id %q", transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
	}

	now := requestcontext.Now(ctx)
	var sold *models.Transfer
	err = s.runner.RunInTx(ctx, existing.ParcelID, func(ctx context.Context) error {
		t, err := s.transfers.FindByID(ctx, transferID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
		}
		if err := t.CanApprove(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
		}
		if t.BuyerCitizenID == "" {
			return dErrors.New(dErrors.CodeNotFound, "transfer has no confirmed buyer")
		}

		buyer, err := s.users.FindByCitizenID(ctx, t.BuyerCitizenID)
		if err != nil {
			return err
		}

		if _, err := s.registry.TransferOwnership(ctx, t.ParcelID, buyer.ID, adminID); err != nil {
			return err
		}

		var stateErr error
		sold, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error {
				stateErr = t.CanApprove()
				return stateErr
			},
			func(t *models.Transfer) { t.ApplyApprove(adminID, now) },
		)
		if err != nil {
			if stateErr != nil {
				return dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementOutcome("sold")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionTransferApproved,
		ActorID:   adminID,
		SubjectID: sold.ID,
		ParcelID:  sold.ParcelID,
		Detail:    sold.BuyerCitizenID,
	})
	return sold, nil
}

// GetByID loads one transfer.
func (s *Service) GetByID(ctx context.Context, transferID string) (*models.Transfer, error) {
	t, err := s.transfers.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no transfer with id %q", transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
	}
	return t, nil
}

// MyTransfers pages through the transfers the citizen is party to, as seller
// or buyer.
func (s *Service) MyTransfers(ctx context.Context, citizenID string, page pagination.Page) (pagination.Result[*models.Transfer], error) {
	items, total, err := s.transfers.ListByCitizen(ctx, citizenID, page)
	if err != nil {
		return pagination.Result[*models.Transfer]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return pagination.NewResult(page, total, items), nil
}

// AwaitingApproval pages through the admin queue: active transfers with a
// confirmed buyer.
func (s *Service) AwaitingApproval(ctx context.Context, page pagination.Page) (pagination.Result[*models.Transfer], error) {
	items, total, err := s.transfers.ListAwaitingApproval(ctx, page)
	if err != nil {
		return pagination.Result[*models.Transfer]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return pagination.NewResult(page, total, items), nil
}

// ListAll pages through every transfer. Admin use.
func (s *Service) ListAll(ctx context.Context, page pagination.Page) (pagination.Result[*models.Transfer], error) {
	items, total, err := s.transfers.ListAll(ctx, page)
	if err != nil {
		return pagination.Result[*models.Transfer]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return pagination.NewResult(page, total, items), nil
}

func errNoCancelable(transferID string) error {
	return dErrors.Newf(dErrors.CodeNotFound, "no cancelable transfer with id %q for this seller", transferID)
}
