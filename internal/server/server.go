package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/config"
	"github.com/linksnip/linksnip/internal/httpx"
	"github.com/linksnip/linksnip/internal/link"
	"github.com/linksnip/linksnip/internal/payment"
	"github.com/linksnip/linksnip/internal/quota"
)

// Server represents the HTTP server with all dependencies.
type Server struct {
	config         *config.Config
	logger         *slog.Logger
	linkHandler    *link.Handler
	quotaHandler   *quota.Handler
	paymentHandler *payment.Handler
	authManager    *auth.Manager
	limiter        httpx.Allower
	server         *http.Server
}

// New creates a new Server instance.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	linkHandler *link.Handler,
	quotaHandler *quota.Handler,
	paymentHandler *payment.Handler,
	authManager *auth.Manager,
	limiter httpx.Allower,
) *Server {
	return &Server{
		config:         cfg,
		logger:         logger,
		linkHandler:    linkHandler,
		quotaHandler:   quotaHandler,
		paymentHandler: paymentHandler,
		authManager:    authManager,
		limiter:        limiter,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	mux := s.setupRoutes()
	handler := s.applyMiddleware(mux)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Handler builds the complete routed and middleware-wrapped handler.
// Exposed so tests can drive the server through httptest without
// binding a socket.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)

	// Link creation accepts anonymous callers; management requires auth.
	mux.Handle("POST /api/links", s.authManager.OptionalAuth(http.HandlerFunc(s.linkHandler.Create)))
	mux.Handle("GET /api/links", s.authManager.RequireAuth(http.HandlerFunc(s.linkHandler.List)))
	mux.Handle("GET /api/links/{id}/clicks", s.authManager.RequireAuth(http.HandlerFunc(s.linkHandler.Clicks)))
	mux.Handle("DELETE /api/links/{id}", s.authManager.RequireAuth(http.HandlerFunc(s.linkHandler.Delete)))

	mux.Handle("GET /api/quota", s.authManager.RequireAuth(http.HandlerFunc(s.quotaHandler.Get)))

	mux.Handle("POST /api/orders", s.authManager.RequireAuth(http.HandlerFunc(s.paymentHandler.CreateOrder)))
	mux.Handle("POST /api/payments/verify", s.authManager.RequireAuth(http.HandlerFunc(s.paymentHandler.Verify)))

	// The redirect hot path. Registered last-resort by pattern precedence:
	// any single-segment path that is not an API route is a short code.
	mux.HandleFunc("GET /{code}", s.linkHandler.Redirect)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,
		httpx.Logger(s.logger),
		httpx.CORS(nil),
		httpx.RateLimit(s.limiter, s.logger),
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"env":    s.config.App.Environment,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
