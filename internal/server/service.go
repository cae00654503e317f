package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fintrack-labs/loandocs/internal/async"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/export"
	"github.com/fintrack-labs/loandocs/internal/pipeline"
	"github.com/fintrack-labs/loandocs/internal/repository"
	"github.com/fintrack-labs/loandocs/internal/uploads"
)

// Server is the HTTP surface of the service. It owns no business logic:
// handlers validate input, delegate, and shape responses.
type Server struct {
	cfg    *common.Config
	apps   repository.ApplicationRepository
	upload uploads.Registry
	proc   *pipeline.Processor
	queue  async.Queue
	export *export.Service
	health func(ctx context.Context) error
	logger *slog.Logger
}

func New(
	cfg *common.Config,
	apps repository.ApplicationRepository,
	upload uploads.Registry,
	proc *pipeline.Processor,
	queue async.Queue,
	exportSvc *export.Service,
	health func(ctx context.Context) error,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		apps:   apps,
		upload: upload,
		proc:   proc,
		queue:  queue,
		export: exportSvc,
		health: health,
		logger: logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/documents/upload", s.handleUploadDocument)
	mux.HandleFunc("GET /api/documents/process/{fileID}", s.handleProcessDocument)
	mux.HandleFunc("POST /api/applications/verify", s.handleVerifyApplication)
	mux.HandleFunc("POST /api/applications", s.handleCreateApplication)
	mux.HandleFunc("GET /api/applications", s.handleListApplications)
	mux.HandleFunc("GET /api/applications/export", s.handleExportApplications)
	mux.HandleFunc("GET /api/applications/{id}", s.handleGetApplication)
	mux.HandleFunc("PATCH /api/applications/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		s.writeError(w, common.WrapError(err, "health check"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// writeError maps sentinel errors onto HTTP status codes. Internal detail
// stays in the log; the client sees a stable code and message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidTransition):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	s.writeJSON(w, code, map[string]string{"error": msg})
}
