package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-labs/loandocs/constants"
	"github.com/fintrack-labs/loandocs/internal/async"
	"github.com/fintrack-labs/loandocs/internal/common"
)

type createApplicationRequest struct {
	FileID string `json:"file_id"`
}

// handleCreateApplication opens a draft application for a registered upload
// and queues its document for background extraction. Returns 202: the
// extraction result lands on the row asynchronously.
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid JSON body", common.ErrInvalidInput))
		return
	}
	if req.FileID == "" {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "file_id is required", common.ErrInvalidInput))
		return
	}
	if _, err := s.upload.Get(r.Context(), req.FileID); err != nil {
		s.writeError(w, err)
		return
	}

	app, err := s.apps.Create(r.Context(), "", constants.AppStatusDraft, nil, false)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.queue.Enqueue(r.Context(), async.Job{
		ApplicationID: app.ID,
		FileID:        req.FileID,
		SubmittedAt:   time.Now().UTC(),
	}); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, app)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"applications": apps, "count": len(apps)})
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid application id", common.ErrInvalidInput))
		return
	}

	app, err := s.apps.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid application id", common.ErrInvalidInput))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid JSON body", common.ErrInvalidInput))
		return
	}
	next, ok := constants.ParseApplicationStatus(req.Status)
	if !ok {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "unknown status "+req.Status, common.ErrInvalidInput))
		return
	}

	if err := s.apps.UpdateStatus(r.Context(), id, next); err != nil {
		s.writeError(w, err)
		return
	}

	app, err := s.apps.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleExportApplications(w http.ResponseWriter, r *http.Request) {
	data, err := s.export.ExportApplicationsXLSX(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="applications.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("export write failed", "error", err)
	}
}
