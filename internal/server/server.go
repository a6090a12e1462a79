// Package server exposes the studio service over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gridcollage/pkg/observability"
	"github.com/matzehuels/gridcollage/pkg/studio"
)

// Config configures a Server.
type Config struct {
	Addr   string
	Studio *studio.Service
	Logger *log.Logger

	// MaxBodySize bounds request bodies. Uploads larger than the studio's
	// limit are rejected by the studio itself.
	MaxBodySize int64
}

// Server is the HTTP API.
type Server struct {
	studio  *studio.Service
	logger  *log.Logger
	maxBody int64
	http    *http.Server
}

// New creates a server. Addr defaults to ":8080".
func New(cfg Config) *Server {
	s := &Server{
		studio:  cfg.Studio,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodySize,
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.maxBody <= 0 {
		s.maxBody = studio.DefaultMaxUploadSize + 1<<20
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/templates", s.handleTemplates)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/images", s.handleUpload)
			r.Delete("/images", s.handleClearImages)
			r.Get("/images/{imageID}", s.handleGetImage)
			r.Delete("/images/{imageID}", s.handleRemoveImage)

			r.Put("/template", s.handleSwitchTemplate)
			r.Put("/cells/{cellID}/span", s.handleSetSpan)
			r.Put("/cells/{cellID}/image", s.handleAssign)
			r.Post("/autofill", s.handleAutoFill)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

// observe reports requests to the HTTP hooks and the request log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
