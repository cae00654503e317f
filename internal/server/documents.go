package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-labs/loandocs/constants"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/entity"
	"github.com/fintrack-labs/loandocs/internal/parse"
)

type uploadResponse struct {
	Message      string `json:"message"`
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_name"`
	DocumentType string `json:"document_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// handleUploadDocument accepts one multipart file under the "document" field,
// stages it on disk, and registers it for later processing. The response
// file ID is the handle for the process and verify calls.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxSizeBytes)

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_UPLOAD", "no document uploaded", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !constants.IsAllowedExt(ext) {
		s.writeError(w, common.NewAppError("BAD_UPLOAD",
			"unsupported file type; allowed: pdf, jpg, jpeg, png", common.ErrInvalidInput))
		return
	}
	if mime := header.Header.Get("Content-Type"); mime != "" && !constants.IsAllowedMIME(mime) {
		s.writeError(w, common.NewAppError("BAD_UPLOAD",
			"unsupported content type "+mime, common.ErrInvalidInput))
		return
	}

	docType, _ := constants.CanonicalizeDocType(r.FormValue("documentType"))

	if err := os.MkdirAll(s.cfg.Uploads.Dir, 0o755); err != nil {
		s.writeError(w, common.WrapError(err, "create upload dir"))
		return
	}

	// Unique on-disk name so concurrent uploads of the same file never collide.
	name := fmt.Sprintf("document-%d-%d%s", time.Now().UnixNano(), rand.Intn(1_000_000_000), "."+constants.NormalizeExt(ext))
	path := filepath.Join(s.cfg.Uploads.Dir, name)

	dst, err := os.Create(path)
	if err != nil {
		s.writeError(w, common.WrapError(err, "stage upload"))
		return
	}

	hasher := sha256.New()
	size, err := io.Copy(dst, io.TeeReader(file, hasher))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		s.writeError(w, common.WrapError(err, "stage upload"))
		return
	}

	now := time.Now().UTC()
	uploaded := entity.UploadedFile{
		ID:           uuid.NewString(),
		Path:         path,
		OriginalName: header.Filename,
		DocumentType: string(docType),
		ContentHash:  hex.EncodeToString(hasher.Sum(nil)),
		SizeBytes:    size,
		UploadedAt:   now,
		ExpiresAt:    now.Add(s.cfg.Uploads.TTL),
	}
	if err := s.upload.Put(r.Context(), uploaded); err != nil {
		_ = os.Remove(path)
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Message:      "File uploaded successfully",
		FileID:       uploaded.ID,
		OriginalName: uploaded.OriginalName,
		DocumentType: uploaded.DocumentType,
		SizeBytes:    size,
	})
}

type processResponse struct {
	Data       parse.ExtractedApplicationData `json:"data"`
	Validation parse.ValidationResult         `json:"validation"`
	Status     string                         `json:"status"`
	Method     string                         `json:"method"`
	Pages      int                            `json:"pages"`
	DurationMS int64                          `json:"duration_ms"`
	Warnings   []string                       `json:"warnings,omitempty"`
}

// handleProcessDocument runs extraction synchronously for one registered
// upload and returns the result without persisting anything. The reviewer
// uses this to inspect and correct the fields before verifying.
func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileID")

	res, validation, err := s.proc.ProcessStandalone(r.Context(), fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, processResponse{
		Data:       res.Data,
		Validation: validation,
		Status:     string(res.Status),
		Method:     res.Method,
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   res.Warnings,
	})
}

type verifyRequest struct {
	Data   json.RawMessage `json:"data"`
	FileID string          `json:"file_id,omitempty"`
}

// handleVerifyApplication accepts reviewer-corrected extraction data and
// persists it as a submitted, manually-verified application.
func (s *Server) handleVerifyApplication(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid JSON body", common.ErrInvalidInput))
		return
	}
	if len(req.Data) == 0 {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "data is required", common.ErrInvalidInput))
		return
	}
	if err := parse.ValidateExtractedJSON(req.Data); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", err.Error(), common.ErrValidation))
		return
	}

	var data parse.ExtractedApplicationData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid extraction payload", common.ErrInvalidInput))
		return
	}

	app, err := s.apps.Create(r.Context(), data.ApplicantName, constants.AppStatusSubmitted, req.Data, true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.FileID != "" {
		if f, gerr := s.upload.Get(r.Context(), req.FileID); gerr == nil {
			doc := entity.DocumentRef{
				ApplicationID: app.ID,
				DocumentType:  f.DocumentType,
				OriginalName:  f.OriginalName,
				ContentHash:   f.ContentHash,
				SizeBytes:     f.SizeBytes,
			}
			if _, aerr := s.apps.AttachDocument(r.Context(), doc); aerr != nil {
				s.logger.Warn("attach document on verify failed", "application_id", app.ID, "error", aerr)
			}
		}
	}

	s.writeJSON(w, http.StatusCreated, app)
}
