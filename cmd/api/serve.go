package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/prefabstore/internal/auth"
	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/db"
	httpx "github.com/geocoder89/prefabstore/internal/http"
	"github.com/geocoder89/prefabstore/internal/http/handlers"
	"github.com/geocoder89/prefabstore/internal/observability"
	"github.com/geocoder89/prefabstore/internal/redisclient"
	"github.com/geocoder89/prefabstore/internal/repo/memory"
	"github.com/geocoder89/prefabstore/internal/repo/postgres"
	"github.com/geocoder89/prefabstore/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep identities in process memory instead of Postgres (dev only)")

	return cmd
}

func runServe(ctx context.Context, inMemory bool) error {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// a missing signing secret must stop the process here, not per request
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "prefabstore",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("bcrypt cost: %w", err)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	checks := map[string]handlers.Check{}

	var users auth.UserStore
	if inMemory {
		log.Warn("using in-memory identity store; data is lost on restart")
		users = memory.NewUsersRepo()
	} else {
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		users = postgres.NewUsersRepo(pool, prom)
		checks["postgres"] = pool.Ping
	}

	created, err := db.EnsureAdminUser(ctx, users, hasher, cfg)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", "email", cfg.AdminEmail)
	}

	var denylist auth.Denylist
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		denylist = rc
		checks["redis"] = rc.Ping
	} else {
		mem := auth.NewMemoryDenylist()
		go sweepDenylist(ctx, mem)
		denylist = mem
	}

	svc, err := auth.NewService(auth.ServiceConfig{
		Users:                 users,
		Hasher:                hasher,
		Tokens:                tokens,
		Denylist:              denylist,
		Recorder:              prom,
		Logger:                log,
		AllowPrivilegedSignup: cfg.AllowPrivilegedSignup,
	})
	if err != nil {
		return err
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Config:   cfg,
		Auth:     svc,
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}

func sweepDenylist(ctx context.Context, d *auth.MemoryDenylist) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
