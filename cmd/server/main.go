package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"identra/internal/audit"
	audithandler "identra/internal/audit/handler"
	auditmetrics "identra/internal/audit/metrics"
	"identra/internal/audit/statscache"
	auditpostgres "identra/internal/audit/store/postgres"
	"identra/internal/audit/worker"
	"identra/internal/auth"
	authhandler "identra/internal/auth/handler"
	"identra/internal/intercept"
	"identra/internal/keys"
	"identra/internal/platform/config"
	"identra/internal/platform/httpserver"
	"identra/internal/platform/logger"
	platformredis "identra/internal/platform/redis"
	"identra/internal/token"
	tokenmetrics "identra/internal/token/metrics"
	"identra/pkg/platform/middleware/metadata"
	"identra/pkg/platform/middleware/requestid"
	"identra/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Key material is loaded once; a service without usable keys must not start.
	material, err := keys.Load(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		log.Error("failed to load key material", "error", err)
		os.Exit(1)
	}

	tokenSvc, err := token.New(material, token.WithMetrics(tokenmetrics.New()))
	if err != nil {
		log.Error("failed to construct token service", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditStore := auditpostgres.New(pool)
	if err := auditStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to prepare audit schema", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditMetrics := auditmetrics.New()
	recorder, err := audit.NewRecorder(auditStore, log,
		audit.WithMetrics(auditMetrics),
		audit.WithStatsCache(statscache.New(redisClient, cfg.Redis.StatsTTL, log)),
	)
	if err != nil {
		log.Error("failed to construct audit recorder", "error", err)
		os.Exit(1)
	}

	auditWorker := worker.New(recorder, log, cfg.AuditInboxSize, worker.WithMetrics(auditMetrics))
	interceptor := intercept.New(auditWorker, tokenSvc, log)

	authSvc, err := auth.NewService(auth.VerifierFromEnv(), tokenSvc, cfg.TokenTTL)
	if err != nil {
		log.Error("failed to construct auth service", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(auth.OptionalAuth(tokenSvc))

	authhandler.New(authSvc, interceptor, log).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenSvc, log))
		audithandler.New(recorder, log).Register(r)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		// Redis is optional; when configured it must answer.
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		auditWorker.Run(workerCtx)
		return nil
	})

	g.Go(func() error {
		log.Info("starting identra", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		if err := httpserver.Shutdown(srv); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}

		// Stop the worker only after the server has drained so in-flight
		// requests can still submit audit entries; Run then flushes the inbox.
		stopWorker()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
