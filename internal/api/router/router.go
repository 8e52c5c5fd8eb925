package router

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rawasy/aderlee/internal/api/handlers"
	auth_middleware "github.com/rawasy/aderlee/internal/api/middleware"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	AuthHandler    *handlers.AuthHandler
	SecretHandler  *handlers.SecretHandler
	CodecHandler   *handlers.CodecHandler
	WatchHandler   *handlers.WatchHandler
	EventsHandler  *handlers.EventsHandler
	AlertHandler   *handlers.AlertHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *auth_middleware.AuthMiddleware
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// 🛡️ Limit all incoming JSON requests to 1 Megabyte max (OOM Protection)
	r.Use(auth_middleware.MaxBytes(1_048_576))

	// 🛡️ In-memory token bucket rate limiting
	r.Use(cfg.AuthMiddleware.RateLimit)

	// Strict CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------------------------------------------------------------
		// Public Routes (No Auth Required)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
		})

		// ---------------------------------------------------------------------
		// Protected Routes (Requires a Valid JWT)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			// --- Stored Secrets ---
			// Catch-all segments let secret names contain slashes, e.g.
			// PUT /api/v1/secrets/db/password. The static /rotate route
			// shadows a secret of that exact name; "rotate" is reserved.
			r.Route("/secrets", func(r chi.Router) {
				r.Get("/", cfg.SecretHandler.List)
				r.Post("/rotate", cfg.SecretHandler.Rotate)
				r.Put("/*", cfg.SecretHandler.Put)
				r.Get("/*", cfg.SecretHandler.Get)
				r.Delete("/*", cfg.SecretHandler.Delete)
			})

			// --- Ad-hoc Codec (Caller-Supplied Keys) ---
			r.Route("/codec", func(r chi.Router) {
				r.Post("/encode", cfg.CodecHandler.Encode)
				r.Post("/decode", cfg.CodecHandler.Decode)
				r.Post("/probe", cfg.CodecHandler.Probe)
			})

			// --- Action Center (Alerts) ---
			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", cfg.AlertHandler.List)
				r.Post("/{id}/resolve", cfg.AlertHandler.Resolve)
			})

			// --- Real-Time Change Feeds ---
			r.Get("/watch", cfg.WatchHandler.StreamChanges)
			r.Get("/events", cfg.EventsHandler.StreamEvents)
		})
	})

	r.Get("/health", cfg.HealthHandler.Check)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
