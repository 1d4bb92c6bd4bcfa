// Package service is the dispute ledger. Filing and dropping a dispute
// cascade a status change into the land registry; both writes happen inside
// one transactional unit keyed by the parcel.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"landregistry/internal/audit"
	"landregistry/internal/dispute/metrics"
	"landregistry/internal/dispute/models"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
	"landregistry/pkg/requestcontext"
)

var tracer = otel.Tracer("landregistry/internal/dispute")

// Store persists disputes.
type Store interface {
	Create(ctx context.Context, d *models.Dispute) error
	FindByID(ctx context.Context, id string) (*models.Dispute, error)
	Execute(ctx context.Context, id string, validate func(*models.Dispute) error, mutate func(*models.Dispute)) (*models.Dispute, error)
	ListByCitizen(ctx context.Context, citizenID string, page pagination.Page) ([]*models.Dispute, int, error)
	ListAll(ctx context.Context, page pagination.Page) ([]*models.Dispute, int, error)
}

// Registry is the slice of the land registry the ledger calls into. Disputes
// never write Land fields directly.
type Registry interface {
	MarkOnDispute(ctx context.Context, parcelID string) error
	ClearDispute(ctx context.Context, parcelID string) (bool, error)
}

// Service owns the dispute lifecycle.
type Service struct {
	disputes Store
	registry Registry
	runner   tx.Runner
	auditor  *audit.Emitter
	metrics  *metrics.Metrics
}

func New(disputes Store, registry Registry, runner tx.Runner, auditor *audit.Emitter, m *metrics.Metrics) *Service {
	return &Service{disputes: disputes, registry: registry, runner: runner, auditor: auditor, metrics: m}
}

// FileInput carries the filing fields.
type FileInput struct {
	ParcelID           string
	LandOwnerCitizenID string
	RaisedByCitizenID  string
	FileURL            string
}

// File opens a dispute against a parcel and flips the parcel to onDispute.
// The parcel flip and the dispute row commit together or not at all.
func (s *Service) File(ctx context.Context, in FileInput) (*models.Dispute, error) {
	ctx, span := tracer.Start(ctx, "dispute.File")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", in.ParcelID))

	now := requestcontext.Now(ctx)
	d, err := models.NewDispute(uuid.NewString(), in.FileURL, in.ParcelID, in.LandOwnerCitizenID, in.RaisedByCitizenID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}

	err = s.runner.RunInTx(ctx, d.ParcelID, func(ctx context.Context) error {
		// The registry validates the parcel exists; the dispute row is
		// written only once the flip is in.
		if err := s.registry.MarkOnDispute(ctx, d.ParcelID); err != nil {
			return err
		}
		if err := s.disputes.Create(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create dispute")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementOutcome("filed")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionDisputeFiled,
		ActorID:   in.RaisedByCitizenID,
		SubjectID: d.ID,
		ParcelID:  d.ParcelID,
	})
	return d, nil
}

// Resolve marks the dispute solved. The parcel's status is untouched:
// resolution records the admin's judgement, it does not clear the flag the
// way dropping does.
func (s *Service) Resolve(ctx context.Context, disputeID, adminID string) (*models.Dispute, error) {
	ctx, span := tracer.Start(ctx, "dispute.Resolve")
	defer span.End()

	now := requestcontext.Now(ctx)
	var stateErr error
	d, err := s.disputes.Execute(ctx, disputeID,
		func(d *models.Dispute) error {
			stateErr = d.CanResolve()
			return stateErr
		},
		func(d *models.Dispute) { d.ApplyResolve(adminID, now) },
	)
	if err != nil {
		if stateErr != nil {
			return nil, dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no dispute with id %q", disputeID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve dispute")
	}

	s.metrics.IncrementOutcome("solved")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionDisputeResolved,
		ActorID:   adminID,
		SubjectID: d.ID,
		ParcelID:  d.ParcelID,
	})
	return d, nil
}

// Drop withdraws the dispute, soft-deletes it, and asks the registry to
// restore the parcel. Only a party to the dispute may drop it. The restore
// is conditional: if the parcel's status moved on since, it is left alone.
func (s *Service) Drop(ctx context.Context, disputeID, actorCitizenID string) (*models.Dispute, error) {
	ctx, span := tracer.Start(ctx, "dispute.Drop")
	defer span.End()

	// Resolve the parcel key first so the transactional unit covers both
	// records.
	existing, err := s.disputes.FindByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no dispute with id %q", disputeID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dispute")
	}
	if !existing.Involves(actorCitizenID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not a party to this dispute")
	}

	now := requestcontext.Now(ctx)
	var dropped *models.Dispute
	err = s.runner.RunInTx(ctx, existing.ParcelID, func(ctx context.Context) error {
		var stateErr error
		d, err := s.disputes.Execute(ctx, disputeID,
			func(d *models.Dispute) error {
				stateErr = d.CanDrop()
				return stateErr
			},
			func(d *models.Dispute) { d.ApplyDrop(now) },
		)
		if err != nil {
			if stateErr != nil {
				return dErrors.Wrap(stateErr, dErrors.CodeInvalidState, stateErr.Error())
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "no dispute with id %q", disputeID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to drop dispute")
		}
		dropped = d

		_, err = s.registry.ClearDispute(ctx, d.ParcelID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementOutcome("dropped")
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionDisputeDropped,
		ActorID:   actorCitizenID,
		SubjectID: dropped.ID,
		ParcelID:  dropped.ParcelID,
	})
	return dropped, nil
}

// MyDisputes pages through the disputes the citizen is party to, as owner or
// raiser, excluding dropped ones.
func (s *Service) MyDisputes(ctx context.Context, citizenID string, page pagination.Page) (pagination.Result[*models.Dispute], error) {
	items, total, err := s.disputes.ListByCitizen(ctx, citizenID, page)
	if err != nil {
		return pagination.Result[*models.Dispute]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list disputes")
	}
	return pagination.NewResult(page, total, items), nil
}

// ListAll pages through every live dispute. Admin use.
func (s *Service) ListAll(ctx context.Context, page pagination.Page) (pagination.Result[*models.Dispute], error) {
	items, total, err := s.disputes.ListAll(ctx, page)
	if err != nil {
		return pagination.Result[*models.Dispute]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list disputes")
	}
	return pagination.NewResult(page, total, items), nil
}
