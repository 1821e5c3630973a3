package api

import (
	"context"
	"errors"
	"net/http"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/config"
)

// Server wraps the HTTP server with the standard middleware chain.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the API server from the configured handlers.
func NewServer(cfg config.APIConfig, noteHandler *NoteHandler, chatHandler *ChatHandler, healthHandler *HealthHandler) *Server {
	mux := NewRouter(noteHandler, chatHandler, healthHandler)

	handler := Chain(mux,
		NewRecoveryMiddleware(),
		NewCorrelationIDMiddleware(),
		NewLoggingMiddleware(),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Host + ":" + cfg.Port,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slogger.InfoNoCtx("API server listening", slogger.Fields{
		"addr": s.httpServer.Addr,
	})
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
