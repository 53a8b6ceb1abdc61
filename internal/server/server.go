// Package server exposes the comparison pipeline over HTTP for CI
// fleets that keep a warm daemon instead of paying process startup per
// comparison.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/pipeline"
	"github.com/typetools/ttxdiff/pkg/report"
)

// Comparer runs one comparison. Satisfied by *pipeline.Runner.
type Comparer interface {
	Execute(ctx context.Context, opts pipeline.Options) (*report.Comparison, error)
}

// Server represents the API server.
type Server struct {
	Addr string

	router   *chi.Mux
	server   *http.Server
	comparer Comparer
	store    report.Store
	logger   *log.Logger
}

// NewServer creates an API server around a comparer and a run history.
// store may be nil when history is disabled.
func NewServer(addr string, comparer Comparer, store report.Store, logger *log.Logger) *Server {
	if store == nil {
		store = report.NewNullStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		Addr:     addr,
		router:   chi.NewRouter(),
		comparer: comparer,
		store:    store,
		logger:   logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	// Comparison routes. No write timeout on the server because a cold
	// comparison runs two font builds.
	s.router.Post("/compare", s.handleCompare)
	s.router.Get("/runs", s.handleListRuns)
	s.router.Get("/runs/{id}", s.handleGetRun)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, status int, code errors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   message,
		Code:    string(code),
	})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: true,
		Data:    data,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// handleCompare runs a comparison synchronously and returns the report.
// Per-toolchain build failures are part of the report, not an HTTP
// error.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.Error(w, http.StatusBadRequest, errors.ErrCodeInvalidOption, "invalid request body: "+err.Error())
		return
	}
	opts.Logger = s.logger

	comparison, err := s.comparer.Execute(r.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		switch errors.GetCode(err) {
		case errors.ErrCodeInvalidOption:
			status = http.StatusBadRequest
		case errors.ErrCodeSourceNotFound, errors.ErrCodeInvalidSource:
			status = http.StatusNotFound
		}
		s.logger.Error("comparison failed", "err", err)
		s.Error(w, status, errors.GetCode(err), err.Error())
		return
	}

	s.Success(w, http.StatusOK, comparison)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			s.Error(w, http.StatusBadRequest, errors.ErrCodeInvalidOption, "invalid limit: "+q)
			return
		}
		limit = n
	}

	summaries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.Error(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error())
		return
	}
	if summaries == nil {
		summaries = []report.Summary{}
	}
	s.Success(w, http.StatusOK, summaries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	comparison, err := s.store.Get(r.Context(), runID)
	if err != nil {
		s.Error(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error())
		return
	}
	if comparison == nil {
		s.Error(w, http.StatusNotFound, errors.ErrCodeInternal, "unknown run: "+runID)
		return
	}
	s.Success(w, http.StatusOK, comparison)
}
