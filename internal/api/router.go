package api

import (
	"net/http"
	"time"

	"srushti-backend/internal/config"
	"srushti-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandlers
	ChatHandler         *handlers.ChatHandlers
	UploadHandler       *handlers.UploadHandlers
	ConversationHandler *handlers.ConversationHandlers
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No Session Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/auth/google", deps.AuthHandler.HandleGoogleLogin)
	r.Get("/auth/google/callback", deps.AuthHandler.HandleGoogleCallback)
	r.Post("/logout", deps.AuthHandler.HandleLogout)

	// --- Authenticated Routes (Session Required) ---
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(deps.Config.SessionSecret))

		// The chat stream runs two upstream passes plus a search and can
		// legitimately take minutes, so it carries no request timeout.
		r.Post("/chat", deps.ChatHandler.HandleChat)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/me", deps.AuthHandler.HandleMe)
			r.Post("/upload_images", deps.UploadHandler.HandleUploadImages)

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", deps.ConversationHandler.HandleListConversations)
				r.Get("/{conversationID}/messages", deps.ConversationHandler.HandleListMessages)
			})
		})
	})

	return r
}
