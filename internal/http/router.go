package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rentalsearch-ai/internal/handlers"
	"rentalsearch-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Assistant service.AssistantService
	Pipeline  handlers.PipelineStatus
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	chatbotHandler := handlers.NewChatbotHandler(deps.Assistant)
	healthHandler := handlers.NewHealthHandler(deps.Pipeline)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chatbot", chatbotHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
