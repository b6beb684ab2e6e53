// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	chatFeature "github.com/leapstack-labs/budgetquery/internal/ui/features/chat"
	"github.com/leapstack-labs/budgetquery/internal/ui/resources"
)

// Options configures SetupRoutes.
type Options struct {
	BasePath string
	Title    string
	Logger   *slog.Logger
}

// SetupRoutes mounts the chat under opts.BasePath.
func SetupRoutes(
	router chi.Router,
	registry *chatFeature.Registry,
	sessionStore sessions.Store,
	opts Options,
) error {
	base := strings.TrimRight(opts.BasePath, "/")

	mount := func(r chi.Router) error {
		r.Handle("/static/*", resources.Handler(base+"/static/"))

		handlers := chatFeature.NewHandlers(registry, sessionStore, base, opts.Title, opts.Logger)
		return chatFeature.SetupRoutes(r, handlers)
	}

	if base == "" {
		return mount(router)
	}

	var err error
	router.Route(base, func(r chi.Router) {
		err = mount(r)
	})
	return err
}
