// Package server provides the HTTP server of the bank file processor.
//
// # File Processing
//
//   - POST /files/{key...} - Process a stored bank file. A non-empty request
//     body is stored under the key first.
//   - POST /events         - Process every object listed in an object storage
//     notification
//
// # Results
//
//   - GET /results          - List processing outcomes (?status=, ?since=, ?limit=)
//   - GET /results/{key...} - Get the outcome of one file
//
// # Health & Metrics
//
//   - GET /health  - Liveness probe
//   - GET /ready   - Readiness probe, checks the store
//   - GET /metrics - Prometheus metrics
//
// File and result endpoints require the API-Key header when server.apiKey is
// configured.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/config"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/handler"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

// HeaderAPIKey carries the server API key
const HeaderAPIKey = "API-Key"

// Server is the bank file processor HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	httpSrv  *http.Server
	store    storage.Store
	handler  *handler.Handler
	gatherer prometheus.Gatherer
}

// New creates a new server. Metrics are served from gatherer when it is
// not nil.
func New(cfg *config.Config, store storage.Store, h *handler.Handler, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:   cfg,
		logger:   logger,
		store:    store,
		handler:  h,
		gatherer: gatherer,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "stage", s.config.Stage)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if s.store != nil {
		return s.store.Close(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /files/{key...}", s.withAPIKey(s.handleProcessFile))
	mux.HandleFunc("POST /events", s.withAPIKey(s.handleEvent))

	mux.HandleFunc("GET /results", s.withAPIKey(s.handleListResults))
	mux.HandleFunc("GET /results/{key...}", s.withAPIKey(s.handleGetResult))

	if s.gatherer != nil {
		mux.Handle("GET "+s.config.Server.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Middleware

// withAPIKey requires the configured API key when one is set
func (s *Server) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := s.config.Server.APIKey
		if want == "" {
			next(w, r)
			return
		}
		got := r.Header.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.logger.Debug("authentication failed", "path", r.URL.Path)
			s.jsonError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.jsonError(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	s.jsonResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// File handlers

func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, err := storage.CleanKey(key); err != nil {
		s.jsonError(w, "invalid key", http.StatusBadRequest)
		return
	}

	if r.ContentLength != 0 {
		body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
		if err := s.store.PutFile(r.Context(), key, body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			s.logger.Error("storing file failed", "key", key, "error", err)
			s.jsonError(w, "storing file failed", http.StatusInternalServerError)
			return
		}
		s.logger.Info("file stored", "key", key)
	}

	result, err := s.handler.Process(r.Context(), key)
	if err != nil {
		s.jsonResponse(w, result, statusFor(err))
		return
	}
	s.jsonResponse(w, result, http.StatusOK)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.jsonError(w, "reading event failed", http.StatusBadRequest)
		return
	}

	ev, err := handler.ParseEvent(data)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.handler.HandleEvent(r.Context(), ev)
	if err != nil {
		s.jsonResponse(w, results, statusFor(err))
		return
	}
	s.jsonResponse(w, results, http.StatusOK)
}

// statusFor maps a processing error to a response status
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, handler.ErrUnsupportedFileType):
		return http.StatusBadRequest
	case errors.Is(err, handler.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusUnprocessableEntity
	}
}

// Result handlers

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter := &storage.ResultFilter{
		Status: storage.ResultStatus(r.URL.Query().Get("status")),
	}

	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.jsonError(w, "invalid since", http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing results failed", "error", err)
		s.jsonError(w, "listing results failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []*storage.Result{}
	}
	s.jsonResponse(w, results, http.StatusOK)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.GetResult(r.Context(), r.PathValue("key"))
	if errors.Is(err, storage.ErrNotFound) {
		s.jsonError(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("getting result failed", "error", err)
		s.jsonError(w, "getting result failed", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, result, http.StatusOK)
}

// Helper functions

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	s.jsonResponse(w, map[string]string{"error": message}, status)
}
