package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/fintrack-labs/loandocs/constants"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/entity"
	"github.com/fintrack-labs/loandocs/internal/ocr"
	"github.com/fintrack-labs/loandocs/internal/parse"
	"github.com/fintrack-labs/loandocs/internal/repository"
	"github.com/fintrack-labs/loandocs/internal/uploads"
)

// Processor runs the extraction pipeline for a registered upload and lands
// the outcome on an application row.
type Processor struct {
	Apps    repository.ApplicationRepository
	Uploads uploads.Registry
	OCR     *ocr.Pipeline
	Logger  *slog.Logger
}

func NewProcessor(apps repository.ApplicationRepository, reg uploads.Registry, pipe *ocr.Pipeline, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Apps: apps, Uploads: reg, OCR: pipe, Logger: logger}
}

// ProcessDocument extracts the registered upload fileID and persists the
// result on application applicationID. The processing status moves
// pending -> processing -> completed/error; a document already claimed by
// another worker fails the transition and is skipped.
//
// On success the upload and its file are released. On failure they are kept
// so the document can be retried.
func (p *Processor) ProcessDocument(ctx context.Context, applicationID uuid.UUID, fileID string) error {
	f, err := p.Uploads.Get(ctx, fileID)
	if err != nil {
		return err
	}

	if err := p.beginProcessing(ctx, applicationID); err != nil {
		return err
	}

	res := p.OCR.Process(ctx, f.Path, f.DocumentType)

	extracted, err := json.Marshal(res.Data)
	if err != nil {
		return p.fail(ctx, applicationID, common.WrapError(err, "marshal extraction"))
	}
	if err := parse.ValidateExtractedJSON(extracted); err != nil {
		return p.fail(ctx, applicationID, common.WrapError(err, "extraction schema"))
	}

	if err := p.Apps.SaveExtraction(ctx, applicationID, extracted, res.Data.OCRData.Confidence, res.Method); err != nil {
		return p.fail(ctx, applicationID, err)
	}

	if res.Status == ocr.StatusFailed {
		msg := strings.Join(res.Warnings, "; ")
		if msg == "" {
			msg = "extraction failed"
		}
		return p.Apps.SetProcessingStatus(ctx, applicationID,
			constants.ProcessingRunning, constants.ProcessingError, &msg)
	}

	doc := entity.DocumentRef{
		ApplicationID: applicationID,
		DocumentType:  f.DocumentType,
		OriginalName:  f.OriginalName,
		ContentHash:   f.ContentHash,
		SizeBytes:     f.SizeBytes,
	}
	if _, err := p.Apps.AttachDocument(ctx, doc); err != nil {
		return p.fail(ctx, applicationID, err)
	}

	if err := p.Apps.SetProcessingStatus(ctx, applicationID,
		constants.ProcessingRunning, constants.ProcessingCompleted, nil); err != nil {
		return err
	}

	p.release(ctx, f)
	return nil
}

// ProcessStandalone runs extraction for a registered upload without touching
// the database. Backs the synchronous inspect endpoint.
func (p *Processor) ProcessStandalone(ctx context.Context, fileID string) (ocr.Result, parse.ValidationResult, error) {
	f, err := p.Uploads.Get(ctx, fileID)
	if err != nil {
		return ocr.Result{}, parse.ValidationResult{}, err
	}
	res := p.OCR.Process(ctx, f.Path, f.DocumentType)
	return res, parse.Validate(res.Data), nil
}

// beginProcessing claims the application: normally pending -> processing,
// or error -> processing for a retry.
func (p *Processor) beginProcessing(ctx context.Context, applicationID uuid.UUID) error {
	err := p.Apps.SetProcessingStatus(ctx, applicationID,
		constants.ProcessingPending, constants.ProcessingRunning, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrInvalidTransition) {
		return err
	}
	return p.Apps.SetProcessingStatus(ctx, applicationID,
		constants.ProcessingError, constants.ProcessingRunning, nil)
}

func (p *Processor) fail(ctx context.Context, applicationID uuid.UUID, cause error) error {
	msg := cause.Error()
	if serr := p.Apps.SetProcessingStatus(ctx, applicationID,
		constants.ProcessingRunning, constants.ProcessingError, &msg); serr != nil {
		p.Logger.Error("failed to record processing error", "application_id", applicationID, "error", serr)
	}
	return cause
}

// release removes the consumed upload from disk and registry. Failures only
// log: the sweeper will reclaim anything left behind.
func (p *Processor) release(ctx context.Context, f *entity.UploadedFile) {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		p.Logger.Warn("failed to remove processed upload", "file_id", f.ID, "path", f.Path, "error", err)
	}
	if err := p.Uploads.Delete(ctx, f.ID); err != nil {
		p.Logger.Warn("failed to deregister processed upload", "file_id", f.ID, "error", err)
	}
}
