package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler, clientOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{clientOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", apiHandler.RootHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Post("/users", apiHandler.CreateUserHandler)
		r.Get("/topics", apiHandler.ListTopicsHandler)
		r.Get("/lessons", apiHandler.ListLessonsHandler)

		r.Post("/session/start", apiHandler.StartSessionHandler)
		r.Get("/session/{id}/messages", apiHandler.SessionMessagesHandler)

		r.Post("/chat/send", apiHandler.ChatSendHandler)

		r.Get("/dashboard/{userId}", apiHandler.DashboardHandler)
	})

	return r
}
