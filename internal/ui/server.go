// Package ui provides the browser chat for budgetquery.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/budgetquery/internal/conversation"
	chatFeature "github.com/leapstack-labs/budgetquery/internal/ui/features/chat"
	"github.com/leapstack-labs/budgetquery/internal/ui/router"
)

// DefaultTitle is the page title.
const DefaultTitle = "Budget Query"

// Server is the browser chat server.
type Server struct {
	registry     *chatFeature.Registry
	sessionStore *sessions.CookieStore
	port         int
	basePath     string
	title        string
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Service       conversation.Service
	Port          int
	BasePath      string
	Title         string
	SessionSecret string
	// SecureCookies marks the session cookie Secure. Only enable it when
	// the chat is reached over HTTPS.
	SecureCookies bool
	IdleTimeout   time.Duration
	PreviewRows   int
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	title := cfg.Title
	if title == "" {
		title = DefaultTitle
	}
	base := strings.TrimRight(cfg.BasePath, "/")

	return &Server{
		registry: chatFeature.NewRegistry(chatFeature.RegistryConfig{
			Service:     cfg.Service,
			BasePath:    base,
			PreviewRows: cfg.PreviewRows,
			IdleTimeout: cfg.IdleTimeout,
			Logger:      logger,
		}),
		sessionStore: chatFeature.NewSessionStore(cfg.SessionSecret, base, cfg.SecureCookies),
		port:         cfg.Port,
		basePath:     base,
		title:        title,
		logger:       logger,
	}
}

// URL returns the address users open.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d%s/", s.port, s.basePath)
}

// Handler builds the HTTP handler of the server.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	if err := router.SetupRoutes(r, s.registry, s.sessionStore, router.Options{
		BasePath: s.basePath,
		Title:    s.title,
		Logger:   s.logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	handler, err := s.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	s.logger.Info("starting UI server", "addr", ln.Addr().String(), "url", s.URL())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		return s.registry.Run(egctx)
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		s.registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
