package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landregistry/internal/land/models"
	"landregistry/internal/land/service"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Service defines the owner-facing land operations.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Land, error)
	GetByParcelID(ctx context.Context, parcelID string) (*models.Land, error)
	ListByOwner(ctx context.Context, ownerID, status string, page pagination.Page) (pagination.Result[*models.Land], error)
}

// Handler wires the owner-facing land endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts land endpoints on the router. The caller is expected to
// have applied the auth middleware already.
func (h *Handler) Register(r chi.Router) {
	r.Post("/lands", h.HandleRegister)
	r.Get("/lands/mine", h.HandleListMine)
	r.Get("/lands/{parcelID}", h.HandleGet)
}

type registerRequest struct {
	ParcelID  string          `json:"parcel_id"`
	SizeSqm   float64         `json:"size_sqm"`
	UsageType string          `json:"usage_type"`
	Location  models.Location `json:"location"`
}

// HandleRegister handles POST /lands requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	l, err := h.service.Register(ctx, service.RegisterInput{
		OwnerID:   actor.UserID,
		ParcelID:  req.ParcelID,
		SizeSqm:   req.SizeSqm,
		UsageType: req.UsageType,
		Location:  req.Location,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "land registration failed",
			"request_id", requestID,
			"parcel_id", req.ParcelID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "land registered",
		"request_id", requestID,
		"parcel_id", l.ParcelID,
		"owner_id", l.OwnerID,
	)
	httputil.WriteJSON(w, http.StatusCreated, l)
}

// HandleGet handles GET /lands/{parcelID} requests. Owners see their own
// parcels; admins see any.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	parcelID := chi.URLParam(r, "parcelID")

	l, err := h.service.GetByParcelID(ctx, parcelID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if l.OwnerID != actor.UserID && actor.Role != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not the owner of this parcel"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleListMine handles GET /lands/mine requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	page := pagination.FromQuery(r.URL.Query())

	res, err := h.service.ListByOwner(ctx, actor.UserID, r.URL.Query().Get("status"), page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
