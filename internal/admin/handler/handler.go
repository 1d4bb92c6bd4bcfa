// Package handler mounts the role-gated review routes: approving parcels,
// finalizing sales, and ruling on disputes.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	adminservice "landregistry/internal/admin/service"
	disputemodels "landregistry/internal/dispute/models"
	identitymodels "landregistry/internal/identity/models"
	landmodels "landregistry/internal/land/models"
	landservice "landregistry/internal/land/service"
	transfermodels "landregistry/internal/transfer/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Lands is the slice of the land registry the review routes call.
type Lands interface {
	Approve(ctx context.Context, parcelID, adminID string, edits landmodels.Patch, ownerEdits identitymodels.ProfilePatch) (*landmodels.Land, error)
	ClearDispute(ctx context.Context, parcelID string) (bool, error)
	List(ctx context.Context, status string, page pagination.Page) (pagination.Result[landservice.LandWithOwner], error)
}

// Disputes is the slice of the dispute ledger the review routes call.
type Disputes interface {
	Resolve(ctx context.Context, disputeID, adminID string) (*disputemodels.Dispute, error)
	ListAll(ctx context.Context, page pagination.Page) (pagination.Result[*disputemodels.Dispute], error)
}

// Transfers is the slice of the transfer workflow the review routes call.
type Transfers interface {
	Approve(ctx context.Context, transferID, adminID string) (*transfermodels.Transfer, error)
	AwaitingApproval(ctx context.Context, page pagination.Page) (pagination.Result[*transfermodels.Transfer], error)
	ListAll(ctx context.Context, page pagination.Page) (pagination.Result[*transfermodels.Transfer], error)
}

// Overviewer answers the dashboard header.
type Overviewer interface {
	Overview(ctx context.Context) (adminservice.Overview, error)
}

type Handler struct {
	lands     Lands
	disputes  Disputes
	transfers Transfers
	overview  Overviewer
	logger    *slog.Logger
}

func New(lands Lands, disputes Disputes, transfers Transfers, overview Overviewer, logger *slog.Logger) *Handler {
	return &Handler{lands: lands, disputes: disputes, transfers: transfers, overview: overview, logger: logger}
}

// Register mounts the review routes. The caller gates the whole group on the
// admin role; handlers trust the actor in context.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/overview", h.HandleOverview)
	r.Get("/admin/lands", h.HandleListLands)
	r.Post("/admin/lands/{parcelID}/approve", h.HandleApproveLand)
	r.Post("/admin/lands/{parcelID}/clear-dispute", h.HandleClearDispute)
	r.Get("/admin/disputes", h.HandleListDisputes)
	r.Post("/admin/disputes/{disputeID}/resolve", h.HandleResolveDispute)
	r.Get("/admin/transfers", h.HandleListTransfers)
	r.Get("/admin/transfers/awaiting", h.HandleListAwaiting)
	r.Post("/admin/transfers/{transferID}/approve", h.HandleApproveTransfer)
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.overview.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ov)
}

type approveLandRequest struct {
	Edits      landmodels.Patch            `json:"edits"`
	OwnerEdits identitymodels.ProfilePatch `json:"owner_edits"`
}

// HandleApproveLand handles POST /admin/lands/{parcelID}/approve requests.
// The body may carry sparse corrections gathered during review, applied in
// the same step as the approval itself.
func (h *Handler) HandleApproveLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	parcelID := chi.URLParam(r, "parcelID")

	req, ok := httputil.DecodeAndPrepare[approveLandRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	l, err := h.lands.Approve(ctx, parcelID, actor.UserID, req.Edits, req.OwnerEdits)
	if err != nil {
		h.logger.WarnContext(ctx, "land approval failed",
			"request_id", requestID,
			"parcel_id", parcelID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "land approved",
		"request_id", requestID,
		"parcel_id", l.ParcelID,
		"admin_id", actor.UserID,
	)
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleClearDispute handles POST /admin/lands/{parcelID}/clear-dispute
// requests. Resolving a dispute leaves the parcel flagged; this route is the
// admin's explicit follow-up to lift it.
func (h *Handler) HandleClearDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parcelID := chi.URLParam(r, "parcelID")

	restored, err := h.lands.ClearDispute(ctx, parcelID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute flag cleared",
		"request_id", requestcontext.RequestID(ctx),
		"parcel_id", parcelID,
		"restored", restored,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"restored": restored})
}

// HandleListLands handles GET /admin/lands requests. An optional status query
// narrows the listing; lands come back with their owner projected in.
func (h *Handler) HandleListLands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pagination.FromQuery(r.URL.Query())
	status := r.URL.Query().Get("status")

	res, err := h.lands.List(ctx, status, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleResolveDispute handles POST /admin/disputes/{disputeID}/resolve
// requests.
func (h *Handler) HandleResolveDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	disputeID := chi.URLParam(r, "disputeID")

	d, err := h.disputes.Resolve(ctx, disputeID, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute resolved",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", d.ID,
		"parcel_id", d.ParcelID,
		"admin_id", actor.UserID,
	)
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleListDisputes handles GET /admin/disputes requests.
func (h *Handler) HandleListDisputes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.disputes.ListAll(ctx, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleApproveTransfer handles POST /admin/transfers/{transferID}/approve
// requests.
func (h *Handler) HandleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	transferID := chi.URLParam(r, "transferID")

	t, err := h.transfers.Approve(ctx, transferID, actor.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "transfer approval failed",
			"request_id", requestID,
			"transfer_id", transferID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer approved",
		"request_id", requestID,
		"transfer_id", t.ID,
		"parcel_id", t.ParcelID,
		"admin_id", actor.UserID,
	)
	httputil.WriteJSON(w, http.StatusOK, t)
}

// HandleListAwaiting handles GET /admin/transfers/awaiting requests.
func (h *Handler) HandleListAwaiting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.transfers.AwaitingApproval(ctx, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleListTransfers handles GET /admin/transfers requests.
func (h *Handler) HandleListTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.transfers.ListAll(ctx, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
