package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/intent-chatbot/app"
	"github.com/upb/intent-chatbot/handlers"
	"github.com/upb/intent-chatbot/middleware"
	"github.com/upb/intent-chatbot/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	health := handlers.NewHealthHandler(db, deps.Index, deps.Store, deps.Logger)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Store, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/intents", chatHandler.HandleListIntents)

		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
			}
			if deps.RateLimiter != nil && deps.RateLimiter.Enabled() {
				r.Use(middleware.RateLimit(deps.RateLimiter, deps.Logger))
			}
			r.Post("/chat", chatHandler.HandleChat)

			// Chat audit log, mounted only when it is enabled
			if deps.ChatLogs != nil {
				var stats handlers.AuditStats
				if deps.Audit != nil {
					stats = deps.Audit
				}
				logs := handlers.NewChatLogHandler(deps.ChatLogs, stats, deps.Logger)
				r.Get("/chat/logs", logs.HandleListLogs)
				r.Get("/chat/logs/{id}", logs.HandleGetLog)
				r.Get("/chat/stats", logs.HandleStats)
			}
		})
	})

	return r
}
