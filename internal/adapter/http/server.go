package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StreamPath is the generation endpoint.
const StreamPath = "/stream-generate"

// Generator produces the frames of one generation.
type Generator interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, req domain.GenerationRequest, emit pipeline.Emit) error
	Invalid(ctx context.Context, err error) domain.Frame
}

// Server exposes the generation stream, static assets, and health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	gen        Generator
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /stream-generate, /static/, /healthz,
// /readyz, and /metrics routes. staticDir may be empty to disable /static/.
func NewServer(addr string, gen Generator, staticDir string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		gen:    gen,
		logger: logger,
	}

	mux.HandleFunc("GET "+StreamPath, s.handleGenerate)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(gen))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Generations outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emit := func(f domain.Frame) error {
		return writeFrame(w, rc, f)
	}

	req, err := pipeline.ParseRequest(r.URL.Query())
	if err != nil {
		s.logger.Info("rejected generation request", "query", r.URL.RawQuery, "error", err)
		if err := emit(s.gen.Invalid(r.Context(), err)); err != nil {
			s.logger.Warn("write stream frame failed", "error", err)
		}
		return
	}

	if err := s.gen.Run(r.Context(), req, emit); err != nil {
		s.logger.Warn("generation stream ended early", "error", err)
	}
}

// writeFrame writes one server-sent event and flushes it to the client.
func writeFrame(w http.ResponseWriter, rc *http.ResponseController, f domain.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}
