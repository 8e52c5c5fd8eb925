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

	"github.com/rawasy/aderlee/internal/api/handlers"
	"github.com/rawasy/aderlee/internal/api/middleware"
	"github.com/rawasy/aderlee/internal/api/router"
	"github.com/rawasy/aderlee/internal/config"
	"github.com/rawasy/aderlee/internal/core/services"
	"github.com/rawasy/aderlee/internal/db/postgres"
	"github.com/rawasy/aderlee/internal/infrastructure/obfuscate"
	"github.com/rawasy/aderlee/internal/telemetry"
	"github.com/rawasy/aderlee/internal/worker"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("🚀 Booting Aderlee Vault...")
	cfg := config.Load()

	// --- 2. Outbound Infrastructure ---
	dbPool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("FATAL: DB failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := postgres.EnsureSchema(context.Background(), dbPool); err != nil {
		logger.Error("FATAL: schema migration failed", "error", err)
		os.Exit(1)
	}

	// --- 3. Hardened Dependency Injection ---
	obfuscator := obfuscate.NewService(cfg.MasterSecret)
	if cfg.MasterSecret == "" {
		logger.Warn("ADERLEE_SECURITY not set; stored payloads are keyed by name only")
	}

	// Repositories
	secretRepo := postgres.NewSecretRepo(dbPool)
	auditRepo := postgres.NewAuditRepo(dbPool)

	// 🛡️ Global Telemetry Hub (Memory Bus)
	telemetryHub := telemetry.NewHub()

	// Services
	tokenService := services.NewTokenService(cfg.JWTSecret)
	authService := services.NewAuthService(tokenService, cfg.APIKeyHash, logger)
	secretService := services.NewSecretService(secretRepo, obfuscator, telemetryHub, logger)
	codecService := services.NewCodecService()

	// --- 4. Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	// 🔄 Master rotation is driven on demand through the API, never free-running
	rotationWorker := worker.NewRotationWorker(secretRepo, obfuscator, telemetryHub, auditRepo, logger, cfg.RotationWorkers)

	// Store Integrity Monitor
	integrityMonitor := worker.NewIntegrityMonitor(secretRepo, obfuscator, auditRepo, logger, cfg.IntegrityInterval)
	go integrityMonitor.Start(workerCtx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	secretHandler := handlers.NewSecretHandler(secretService, rotationWorker)
	codecHandler := handlers.NewCodecHandler(codecService)
	watchHandler := handlers.NewWatchHandler(telemetryHub, logger)
	eventsHandler := handlers.NewEventsHandler(telemetryHub, logger)
	alertHandler := handlers.NewAlertHandler(auditRepo)
	healthHandler := handlers.NewHealthHandler(dbPool)

	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	// --- 5. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthHandler:    authHandler,
		SecretHandler:  secretHandler,
		CodecHandler:   codecHandler,
		WatchHandler:   watchHandler,
		EventsHandler:  eventsHandler,
		AlertHandler:   alertHandler,
		HealthHandler:  healthHandler,
		AuthMiddleware: authMiddleware,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the watch and events streams outlive any fixed
		// deadline. The gateway timeout middleware bounds everything else.
	}

	// --- 6. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("🌐 Aderlee Vault API active", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("🛑 Shutting down...")
	cancelWorkers() // Stop integrity sweeps before the pool goes away

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("✅ Aderlee Vault shutdown complete.")
}
