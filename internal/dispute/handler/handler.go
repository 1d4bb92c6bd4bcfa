package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landregistry/internal/dispute/models"
	"landregistry/internal/dispute/service"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Service defines the citizen-facing dispute operations.
type Service interface {
	File(ctx context.Context, in service.FileInput) (*models.Dispute, error)
	Drop(ctx context.Context, disputeID, actorCitizenID string) (*models.Dispute, error)
	MyDisputes(ctx context.Context, citizenID string, page pagination.Page) (pagination.Result[*models.Dispute], error)
}

// Handler wires dispute endpoints to the ledger.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts dispute endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/disputes", h.HandleFile)
	r.Get("/disputes/mine", h.HandleListMine)
	r.Post("/disputes/{disputeID}/drop", h.HandleDrop)
}

type fileRequest struct {
	ParcelID           string `json:"parcel_id"`
	LandOwnerCitizenID string `json:"land_owner_citizen_id"`
	FileURL            string `json:"file_url"`
}

// HandleFile handles POST /disputes requests. The raiser is always the
// authenticated actor.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[fileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.File(ctx, service.FileInput{
		ParcelID:           req.ParcelID,
		LandOwnerCitizenID: req.LandOwnerCitizenID,
		RaisedByCitizenID:  actor.CitizenID,
		FileURL:            req.FileURL,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "dispute filing failed",
			"request_id", requestID,
			"parcel_id", req.ParcelID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute filed",
		"request_id", requestID,
		"dispute_id", d.ID,
		"parcel_id", d.ParcelID,
	)
	httputil.WriteJSON(w, http.StatusCreated, d)
}

// HandleDrop handles POST /disputes/{disputeID}/drop requests.
func (h *Handler) HandleDrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	disputeID := chi.URLParam(r, "disputeID")

	d, err := h.service.Drop(ctx, disputeID, actor.CitizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute dropped",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", d.ID,
		"parcel_id", d.ParcelID,
	)
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleListMine handles GET /disputes/mine requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.service.MyDisputes(ctx, actor.CitizenID, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
