package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"landregistry/internal/identity/models"
	"landregistry/internal/identity/service"
	"landregistry/internal/platform/middleware"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Service defines the identity operations the handler needs.
type Service interface {
	Signup(ctx context.Context, in service.SignupInput, userAgent string) (*models.User, *models.Session, error)
	Login(ctx context.Context, citizenID, password, userAgent string) (*models.User, *models.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, userID string) (*models.User, error)
}

// TokenIssuer signs and verifies session cookie tokens.
type TokenIssuer interface {
	GenerateSessionToken(userID, sessionID string, expiresIn time.Duration) (string, error)
	ValidateToken(tokenString string) (*middleware.TokenClaims, error)
}

// Handler exposes signup, login, logout and profile endpoints.
type Handler struct {
	logger     *slog.Logger
	identity   Service
	tokens     TokenIssuer
	sessionTTL time.Duration
	secure     bool
	requireMW  func(http.Handler) http.Handler
}

func New(identity Service, tokens TokenIssuer, requireAuth func(http.Handler) http.Handler, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		identity:   identity,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		secure:     secureCookies,
		requireMW:  requireAuth,
	}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.requireMW)
		r.Get("/auth/me", h.handleMe)
	})
}

type signupRequest struct {
	CitizenID   string `json:"citizen_id"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Password    string `json:"password"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, session, err := h.identity.Signup(ctx, service.SignupInput{
		CitizenID:   req.CitizenID,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Password:    req.Password,
	}, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "signup failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	if !h.setSessionCookie(ctx, w, u.ID, session.ID) {
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	CitizenID string `json:"citizen_id"`
	Password  string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, session, err := h.identity.Login(ctx, req.CitizenID, req.Password, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	if !h.setSessionCookie(ctx, w, u.ID, session.ID) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(middleware.CookieName); err == nil {
		// Best effort: the cookie is cleared regardless.
		if claims, err := h.tokens.ValidateToken(cookie.Value); err == nil {
			if err := h.identity.Logout(ctx, claims.SessionID); err != nil {
				h.logger.ErrorContext(ctx, "failed to delete session",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	u, err := h.identity.Me(ctx, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) setSessionCookie(ctx context.Context, w http.ResponseWriter, userID, sessionID string) bool {
	token, err := h.tokens.GenerateSessionToken(userID, sessionID, h.sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign session token",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue session"))
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
	return true
}
