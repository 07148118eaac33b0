//	@title			Content Service API
//	@version		1.0
//	@description	Mindmap outlines and media storage for the study platform.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/studyhub/content-service/internal/config"
	"github.com/studyhub/content-service/internal/db"
	"github.com/studyhub/content-service/internal/media"
	appMiddleware "github.com/studyhub/content-service/internal/middleware"
	"github.com/studyhub/content-service/internal/outline"
	"github.com/studyhub/content-service/internal/resource"
	"github.com/studyhub/content-service/internal/revalidate"
	"github.com/studyhub/content-service/internal/storage"

	_ "github.com/studyhub/content-service/docs/swagger"
)

// Roles allowed to change content.
var editorRoles = []string{"admin", "editor"}

func main() {
	cfg := config.Load()

	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "database connection failed", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		fatal(logger, "database migration failed", err)
	}

	backend, err := storage.NewMinioBackend(ctx, storage.MinioConfig{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		Region:     cfg.StorageRegion,
		UseSSL:     cfg.StorageUseSSL,
		PublicRead: true,
	}, logger)
	if err != nil {
		fatal(logger, "object storage init failed", err)
	}
	assets := storage.NewAssetStore(backend, cfg.StoragePublicBase, cfg.StorageTimeout,
		storage.NewMetrics(prometheus.DefaultRegisterer), logger)

	resolver, err := cfg.NewResolver()
	if err != nil {
		fatal(logger, "namespace resolver init failed", err)
	}

	notifier := revalidate.NewNotifier(cfg.RevalidateURL, cfg.RevalidateToken,
		cfg.RevalidateAttempts, cfg.RevalidateTimeout, logger)
	if !notifier.Enabled() {
		logger.Warn("REVALIDATE_URL not set, site revalidation disabled")
	}

	// Wire dependencies: repository → service → handler
	mediaSvc := media.NewService(media.NewRepository(pool), assets, resolver, logger)
	mediaHandler := media.NewHandler(mediaSvc, logger)

	resourceSvc := resource.NewService(resource.NewRepository(pool), notifier, outline.Options{
		MaxDepth:           cfg.OutlineMaxDepth,
		ReserveEmptyLevels: cfg.OutlineReserveEmptyLevels,
	}, logger)
	resourceHandler := resource.NewHandler(resourceSvc, logger)

	requireEditor := appMiddleware.RequireAuth(cfg.JWTSecret, editorRoles...)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/outline", resourceHandler.Convert)
		r.Route("/media", func(r chi.Router) {
			mediaHandler.Routes(r, requireEditor)
		})
		r.Route("/resources", func(r chi.Router) {
			resourceHandler.Routes(r, requireEditor)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.StorageTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	// Pending revalidations still go out.
	notifier.Wait()

	logger.Info("server stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
