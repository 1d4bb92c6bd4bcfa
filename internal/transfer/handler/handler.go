package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"landregistry/internal/transfer/models"
	"landregistry/internal/transfer/service"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Service defines the citizen-facing transfer operations.
type Service interface {
	Open(ctx context.Context, in service.OpenInput) (*models.Transfer, error)
	PlaceBid(ctx context.Context, transferID, buyerCitizenID string, amount decimal.Decimal) (*models.Transfer, error)
	Confirm(ctx context.Context, transferID, sellerCitizenID, chosenBuyerCitizenID string) (*models.Transfer, error)
	Cancel(ctx context.Context, transferID, sellerCitizenID string) (*models.Transfer, error)
	GetByID(ctx context.Context, transferID string) (*models.Transfer, error)
	MyTransfers(ctx context.Context, citizenID string, page pagination.Page) (pagination.Result[*models.Transfer], error)
}

// Handler wires transfer endpoints to the workflow.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts transfer endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transfers", h.HandleOpen)
	r.Get("/transfers/mine", h.HandleListMine)
	r.Get("/transfers/{transferID}", h.HandleGet)
	r.Post("/transfers/{transferID}/bids", h.HandleBid)
	r.Post("/transfers/{transferID}/confirm", h.HandleConfirm)
	r.Post("/transfers/{transferID}/cancel", h.HandleCancel)
}

type openRequest struct {
	ParcelID       string `json:"parcel_id"`
	BuyerCitizenID string `json:"buyer_citizen_id,omitempty"`
}

// HandleOpen handles POST /transfers requests. The seller is always the
// authenticated actor.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[openRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.service.Open(ctx, service.OpenInput{
		SellerCitizenID: actor.CitizenID,
		ParcelID:        req.ParcelID,
		BuyerCitizenID:  req.BuyerCitizenID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "transfer opening failed",
			"request_id", requestID,
			"parcel_id", req.ParcelID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer opened",
		"request_id", requestID,
		"transfer_id", t.ID,
		"parcel_id", t.ParcelID,
	)
	httputil.WriteJSON(w, http.StatusCreated, t)
}

type bidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HandleBid handles POST /transfers/{transferID}/bids requests.
func (h *Handler) HandleBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	transferID := chi.URLParam(r, "transferID")

	req, ok := httputil.DecodeAndPrepare[bidRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.service.PlaceBid(ctx, transferID, actor.CitizenID, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bid placed",
		"request_id", requestID,
		"transfer_id", t.ID,
		"amount", req.Amount.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, t)
}

type confirmRequest struct {
	BuyerCitizenID string `json:"buyer_citizen_id"`
}

// HandleConfirm handles POST /transfers/{transferID}/confirm requests.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	transferID := chi.URLParam(r, "transferID")

	req, ok := httputil.DecodeAndPrepare[confirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.service.Confirm(ctx, transferID, actor.CitizenID, req.BuyerCitizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer confirmed",
		"request_id", requestID,
		"transfer_id", t.ID,
		"buyer_citizen_id", t.BuyerCitizenID,
	)
	httputil.WriteJSON(w, http.StatusOK, t)
}

// HandleCancel handles POST /transfers/{transferID}/cancel requests.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	transferID := chi.URLParam(r, "transferID")

	t, err := h.service.Cancel(ctx, transferID, actor.CitizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer canceled",
		"request_id", requestcontext.RequestID(ctx),
		"transfer_id", t.ID,
		"parcel_id", t.ParcelID,
	)
	httputil.WriteJSON(w, http.StatusOK, t)
}

// HandleGet handles GET /transfers/{transferID} requests. Listings are
// public to any authenticated citizen so prospective buyers can inspect
// the bid book; parties and admins are not special-cased here.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transferID := chi.URLParam(r, "transferID")

	t, err := h.service.GetByID(ctx, transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if t.Status != models.StatusActive && !t.Involves(requestcontext.Actor(ctx).CitizenID) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no transfer with id %q", transferID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

// HandleListMine handles GET /transfers/mine requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.service.MyTransfers(ctx, actor.CitizenID, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
