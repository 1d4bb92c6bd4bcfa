// Package httptransport composes the HTTP surface: middleware chain, public
// auth routes, the authenticated citizen routes, and the role-gated admin
// routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "landregistry/internal/admin/handler"
	disputehandler "landregistry/internal/dispute/handler"
	identityhandler "landregistry/internal/identity/handler"
	landhandler "landregistry/internal/land/handler"
	platformmetrics "landregistry/internal/platform/metrics"
	"landregistry/internal/platform/middleware"
	transferhandler "landregistry/internal/transfer/handler"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *platformmetrics.Metrics
	Identity    *identityhandler.Handler
	Lands       *landhandler.Handler
	Disputes    *disputehandler.Handler
	Transfers   *transferhandler.Handler
	Admin       *adminhandler.Handler
	RequireAuth func(http.Handler) http.Handler
}

// NewRouter builds the full route tree. Auth routes are public; everything
// else sits behind the session cookie, and /admin additionally behind the
// admin role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(platformmetrics.Latency(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Identity.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(d.RequireAuth)

		d.Lands.Register(r)
		d.Disputes.Register(r)
		d.Transfers.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", d.Logger))
			d.Admin.Register(r)
		})
	})

	return r
}
