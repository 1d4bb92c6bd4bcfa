// Command server runs the land registry HTTP API. Storage backends are picked
// at startup: Postgres and Redis when configured, in-process fallbacks for
// local development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	adminhandler "landregistry/internal/admin/handler"
	adminservice "landregistry/internal/admin/service"
	"landregistry/internal/audit"
	auditkafka "landregistry/internal/audit/kafka"
	auditstore "landregistry/internal/audit/store"
	disputehandler "landregistry/internal/dispute/handler"
	disputemetrics "landregistry/internal/dispute/metrics"
	disputeservice "landregistry/internal/dispute/service"
	disputestore "landregistry/internal/dispute/store"
	identityhandler "landregistry/internal/identity/handler"
	identityservice "landregistry/internal/identity/service"
	sessionstore "landregistry/internal/identity/store/session"
	userstore "landregistry/internal/identity/store/user"
	"landregistry/internal/jwttoken"
	landhandler "landregistry/internal/land/handler"
	landmetrics "landregistry/internal/land/metrics"
	landservice "landregistry/internal/land/service"
	landstore "landregistry/internal/land/store"
	"landregistry/internal/platform/config"
	"landregistry/internal/platform/httpserver"
	"landregistry/internal/platform/logger"
	platformmetrics "landregistry/internal/platform/metrics"
	"landregistry/internal/platform/middleware"
	"landregistry/internal/platform/redis"
	transferhandler "landregistry/internal/transfer/handler"
	transfermetrics "landregistry/internal/transfer/metrics"
	transferservice "landregistry/internal/transfer/service"
	transferstore "landregistry/internal/transfer/store"
	httptransport "landregistry/internal/transport/http"
	"landregistry/pkg/platform/tx"
)

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	// Audit events always land in a store; the Kafka trail is optional.
	var auditStore audit.Store
	if db != nil {
		auditStore = auditstore.NewPostgres(db)
	} else {
		auditStore = auditstore.NewInMemory()
	}
	var publisher audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := auditkafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = kp.Close(flushCtx)
		}()
		publisher = kp
		log.Info("kafka audit trail enabled", "topic", cfg.Kafka.Topic)
	}
	auditor := audit.NewEmitter(log, auditStore, publisher)

	var (
		users    identityservice.UserStore
		sessions identityservice.SessionStore
		lands    landservice.Store
		disputes disputeservice.Store
		xfers    transferservice.Store
		runner   tx.Runner
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		lands = landstore.NewPostgres(db)
		disputes = disputestore.NewPostgres(db)
		xfers = transferstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	} else {
		users = userstore.NewInMemory()
		lands = landstore.NewInMemory()
		disputes = disputestore.NewInMemory()
		xfers = transferstore.NewInMemory()
		runner = tx.NewShardedRunner()
	}
	if redisClient != nil {
		sessions = sessionstore.NewRedis(redisClient.Client)
	} else {
		sessions = sessionstore.NewInMemory()
	}

	identitySvc := identityservice.New(users, sessions, auditor, cfg.SessionTTL)
	landSvc := landservice.New(lands, identitySvc, auditor, landmetrics.New())
	disputeSvc := disputeservice.New(disputes, landSvc, runner, auditor, disputemetrics.New())
	transferSvc := transferservice.New(xfers, landSvc, identitySvc, runner, auditor, transfermetrics.New())
	overviewSvc := adminservice.New(landSvc, disputeSvc, transferSvc)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "landregistry")
	requireAuth := middleware.RequireAuth(tokens, identitySvc, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     platformmetrics.New(),
		Identity:    identityhandler.New(identitySvc, tokens, requireAuth, cfg.SessionTTL, cfg.SecureCookies, log),
		Lands:       landhandler.New(landSvc, log),
		Disputes:    disputehandler.New(disputeSvc, log),
		Transfers:   transferhandler.New(transferSvc, log),
		Admin:       adminhandler.New(landSvc, disputeSvc, transferSvc, overviewSvc, log),
		RequireAuth: requireAuth,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
