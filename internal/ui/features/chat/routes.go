package chat

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the chat feature.
func SetupRoutes(router chi.Router, handlers *Handlers) error {
	router.Get("/", handlers.ChatPage)

	router.Route("/c/{id}", func(r chi.Router) {
		r.Get("/updates", handlers.Updates)
		r.Post("/send", handlers.Send)
		r.Get("/download", handlers.Download)
		r.Post("/feedback/{form}/thumb/{dir}", handlers.Thumb)
		r.Post("/feedback/{form}/submit", handlers.SubmitFeedback)
	})

	return nil
}
