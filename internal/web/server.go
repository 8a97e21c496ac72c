// Package web exposes the attendance engine over HTTP: one verification
// endpoint for kiosks plus read-only ledger and report endpoints.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/verifier"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	gallery  *gallery.Gallery
	verifier verifier.Verifier
	ledger   *ledger.Ledger
	camera   camera.Source
}

// NewServer creates a new web server. The camera source may be nil; the
// verify endpoint then accepts uploads only.
func NewServer(cfg *config.Config, port int, host string, g *gallery.Gallery, v verifier.Verifier, l *ledger.Ledger, cam camera.Source) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		router:   r,
		gallery:  g,
		verifier: v,
		ledger:   l,
		camera:   cam,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // verification waits on the verifier backend
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) sessionOptions() session.Options {
	return session.Options{
		VerifyTimeout: s.config.Verifier.Timeout,
	}
}
