package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

// Ports holds the services the API serves.
type Ports struct {
	Retrieval driving.RetrievalService
	Answer    driving.AnswerService

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler
}

// Validate checks that required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return errors.New("ports is nil")
	}
	if p.Retrieval == nil {
		return errors.New("retrieval service is required")
	}
	if p.Answer == nil {
		return errors.New("answer service is required")
	}
	return nil
}

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveHTTP(route string, code int)
}

// Options tunes the server.
type Options struct {
	// Version is reported by /health.
	Version string

	// TrustDebugHeader honours X-Tenant-Debug when no bearer tenant is sent.
	// Only test deployments set it.
	TrustDebugHeader bool

	// DebugRoutes mounts GET /debug/tenant.
	DebugRoutes bool

	// AllowedOrigins lists CORS origins. Empty disables CORS headers.
	AllowedOrigins []string

	// RequestTimeout bounds retrieve and answer calls. Zero means none.
	RequestTimeout time.Duration

	Observer RequestObserver
}

// Server is the HTTP API.
type Server struct {
	ports  *Ports
	opts   Options
	router *mux.Router
}

// NewServer builds the router for ports.
func NewServer(ports *Ports, opts Options) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{ports: ports, opts: opts, router: mux.NewRouter()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID, s.accessLog)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.ports.Metrics != nil {
		r.Handle("/metrics", s.ports.Metrics).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(s.requireTenant)
	api.HandleFunc("/retrieve", s.handleRetrieve).Methods(http.MethodPost)
	api.HandleFunc("/retrieve/ac", s.handleRetrieve).Methods(http.MethodPost)
	api.HandleFunc("/answer", s.handleAnswer).Methods(http.MethodPost)
	if s.opts.DebugRoutes {
		api.HandleFunc("/debug/tenant", s.handleDebugTenant).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
