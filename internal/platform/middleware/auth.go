package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"landregistry/pkg/requestcontext"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "token"

// TokenClaims is the subset of JWT claims the middleware needs.
type TokenClaims struct {
	UserID    string
	SessionID string
}

// TokenValidator validates the signed cookie token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// ActorResolver turns validated claims into the acting identity. The identity
// service implements this by checking the session is still alive and loading
// the user's citizen id and role.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID, sessionID string) (requestcontext.ActorInfo, error)
}

// RequireAuth authenticates the session cookie and injects the actor into the
// request context. Requests without a valid cookie get 401.
func RequireAuth(validator TokenValidator, resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, "authentication token missing")
				return
			}

			claims, err := validator.ValidateToken(cookie.Value)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeAuthError(w, "invalid token")
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), claims.UserID, claims.SessionID)
			if err != nil {
				logger.WarnContext(r.Context(), "session rejected",
					"error", err,
					"user_id", claims.UserID,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeAuthError(w, "unauthorized")
				return
			}

			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to actors holding the given role. Must run
// after RequireAuth.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := requestcontext.Actor(r.Context())
			if actor.Role != role {
				logger.WarnContext(r.Context(), "role mismatch",
					"required", role,
					"actual", actor.Role,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + desc + `"}`))
}
