// Package main is the entrypoint for the ErrorTracker API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kiranshivaraju/errortracker/internal/api"
	"github.com/kiranshivaraju/errortracker/internal/api/handler"
	mw "github.com/kiranshivaraju/errortracker/internal/api/middleware"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/blob"
	"github.com/kiranshivaraju/errortracker/internal/cache"
	"github.com/kiranshivaraju/errortracker/internal/config"
	"github.com/kiranshivaraju/errortracker/internal/form"
	"github.com/kiranshivaraju/errortracker/internal/notify"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/internal/tracker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "blob_backend", cfg.Blob.Backend, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Connect to NATS when configured
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("errortracker"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()
		slog.Info("nats connected")
	}

	// 6. Notifications and blob storage
	notifier, err := buildNotifier(ctx, cfg, nc)
	if err != nil {
		return err
	}
	blobs, err := buildBlobStore(ctx, cfg, nc)
	if err != nil {
		return err
	}

	// 7. Create store and record repository
	pgStore := store.NewPostgresStore(pool)
	repo := tracker.New(pgStore, notifier)
	forms := form.NewSubmitter(blobs, notifier)

	// 8. Build router with dependencies
	auth := mw.NewAuth(pgStore, redisCache, cfg.Redis.AuthCacheTTL)
	rateLimit := mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute)
	maxUpload := cfg.Server.MaxUploadBytes

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),
		ImageHandler:  handler.NewImageHandler(blobs),
		MeHandler:     handler.NewMeHandler(),

		ListErrors:   handler.NewListErrorsHandler(repo),
		ErrorStats:   handler.NewStatsHandler(repo),
		ErrorFacets:  handler.NewFacetsHandler(repo),
		ExportErrors: handler.NewExportHandler(repo, notifier, time.Now),
		GetError:     handler.NewGetErrorHandler(repo),
		CreateError:  handler.NewCreateErrorHandler(repo, forms, maxUpload),
		ReplaceError: handler.NewReplaceErrorHandler(repo, forms, maxUpload),
		PatchError:   handler.NewPatchErrorHandler(repo),
		DeleteError:  handler.NewDeleteErrorHandler(repo),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore, auth),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// buildNotifier always logs notifications and also publishes them to
// JetStream when a NATS connection is available.
func buildNotifier(ctx context.Context, cfg *config.Config, nc *nats.Conn) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(slog.Default())}
	if nc == nil {
		return notifiers, nil
	}

	pub, err := notify.NewNATSPublisher(ctx, nc, cfg.NATS.NotifyStream)
	if err != nil {
		return nil, fmt.Errorf("create notification publisher: %w", err)
	}
	slog.Info("publishing notifications", "stream", cfg.NATS.NotifyStream)
	return append(notifiers, pub), nil
}

func buildBlobStore(ctx context.Context, cfg *config.Config, nc *nats.Conn) (blob.Store, error) {
	baseURL := cfg.Server.PublicBaseURL + "/api/v1/images"

	switch cfg.Blob.Backend {
	case config.BlobBackendNATS:
		s, err := blob.NewObjectStore(ctx, nc, cfg.Blob.Bucket, baseURL)
		if err != nil {
			return nil, fmt.Errorf("create object store: %w", err)
		}
		slog.Info("blob store ready", "backend", "nats", "bucket", cfg.Blob.Bucket)
		return s, nil
	default:
		s, err := blob.NewFSStore(cfg.Blob.Dir, baseURL)
		if err != nil {
			return nil, fmt.Errorf("create blob store: %w", err)
		}
		slog.Info("blob store ready", "backend", "fs", "dir", cfg.Blob.Dir)
		return s, nil
	}
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
