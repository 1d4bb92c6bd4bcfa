// Package service aggregates the review queues an admin works through.
package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	disputemodels "landregistry/internal/dispute/models"
	landmodels "landregistry/internal/land/models"
	landservice "landregistry/internal/land/service"
	transfermodels "landregistry/internal/transfer/models"
	"landregistry/pkg/pagination"
)

// Lands is the admin-facing slice of the land registry.
type Lands interface {
	List(ctx context.Context, status string, page pagination.Page) (pagination.Result[landservice.LandWithOwner], error)
}

// Disputes is the admin-facing slice of the dispute ledger.
type Disputes interface {
	ListAll(ctx context.Context, page pagination.Page) (pagination.Result[*disputemodels.Dispute], error)
}

// Transfers is the admin-facing slice of the transfer workflow.
type Transfers interface {
	AwaitingApproval(ctx context.Context, page pagination.Page) (pagination.Result[*transfermodels.Transfer], error)
}

// Service answers cross-feature admin queries.
type Service struct {
	lands     Lands
	disputes  Disputes
	transfers Transfers
}

func New(lands Lands, disputes Disputes, transfers Transfers) *Service {
	return &Service{lands: lands, disputes: disputes, transfers: transfers}
}

// Overview is the admin dashboard header: how much work is queued where.
type Overview struct {
	PendingLands      int `json:"pending_lands"`
	AwaitingTransfers int `json:"awaiting_transfers"`
	LiveDisputes      int `json:"live_disputes"`
}

// Overview counts the three review queues concurrently. Counts come from the
// listing totals, so a probe page of one item is enough.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	probe := pagination.Page{Number: 1, Limit: 1}

	var ov Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.lands.List(ctx, string(landmodels.StatusWaitingApproval), probe)
		if err != nil {
			return err
		}
		ov.PendingLands = res.TotalItems
		return nil
	})
	g.Go(func() error {
		res, err := s.transfers.AwaitingApproval(ctx, probe)
		if err != nil {
			return err
		}
		ov.AwaitingTransfers = res.TotalItems
		return nil
	})
	g.Go(func() error {
		res, err := s.disputes.ListAll(ctx, probe)
		if err != nil {
			return err
		}
		ov.LiveDisputes = res.TotalItems
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
