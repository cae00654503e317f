package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-labs/loandocs/constants"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/entity"
	"github.com/fintrack-labs/loandocs/internal/ocr"
)

type fakeApps struct {
	processing constants.ProcessingStatus
	extracted  json.RawMessage
	confidence float64
	method     string
	errMsg     *string
	docs       []entity.DocumentRef
}

func (f *fakeApps) Create(context.Context, string, constants.ApplicationStatus, json.RawMessage, bool) (*entity.Application, error) {
	return nil, errors.New("not used")
}
func (f *fakeApps) GetByID(context.Context, uuid.UUID) (*entity.Application, error) {
	return nil, common.ErrNotFound
}
func (f *fakeApps) List(context.Context) ([]*entity.Application, error) { return nil, nil }

func (f *fakeApps) SetProcessingStatus(_ context.Context, _ uuid.UUID, from, to constants.ProcessingStatus, errMsg *string) error {
	if f.processing != from || !from.CanTransitionTo(to) {
		return common.NewAppError("INVALID_TRANSITION", "illegal processing transition", common.ErrInvalidTransition)
	}
	f.processing = to
	f.errMsg = errMsg
	return nil
}

func (f *fakeApps) SaveExtraction(_ context.Context, _ uuid.UUID, extracted json.RawMessage, confidence float64, method string) error {
	f.extracted = extracted
	f.confidence = confidence
	f.method = method
	return nil
}

func (f *fakeApps) UpdateStatus(context.Context, uuid.UUID, constants.ApplicationStatus) error {
	return nil
}
func (f *fakeApps) MarkVerified(context.Context, uuid.UUID) error { return nil }

func (f *fakeApps) AttachDocument(_ context.Context, doc entity.DocumentRef) (*entity.DocumentRef, error) {
	f.docs = append(f.docs, doc)
	return &doc, nil
}

type fakeRegistry struct {
	files   map[string]entity.UploadedFile
	deleted []string
}

func (r *fakeRegistry) Put(_ context.Context, f entity.UploadedFile) error {
	r.files[f.ID] = f
	return nil
}

func (r *fakeRegistry) Get(_ context.Context, id string) (*entity.UploadedFile, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, common.NewAppError("NOT_FOUND", "file not found", common.ErrNotFound)
	}
	return &f, nil
}

func (r *fakeRegistry) Delete(_ context.Context, id string) error {
	delete(r.files, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRegistry) Sweep(context.Context, time.Time) (int, error) { return 0, nil }
func (r *fakeRegistry) Close() error                                 { return nil }

type stubEngine struct {
	text string
	conf float64
	err  error
}

func (e stubEngine) Recognize(context.Context, string) (ocr.Recognition, error) {
	if e.err != nil {
		return ocr.Recognition{}, e.err
	}
	return ocr.Recognition{Text: e.text, Confidence: e.conf}, nil
}
func (e stubEngine) Close() error { return nil }

type stubRasterizer struct{}

func (stubRasterizer) IsAvailable(context.Context) bool { return false }
func (stubRasterizer) Rasterize(context.Context, string) ([]ocr.RasterPage, error) {
	return nil, ocr.ErrConversionUnavailable
}

func newTestProcessor(t *testing.T, eng stubEngine) (*Processor, *fakeApps, *fakeRegistry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	apps := &fakeApps{processing: constants.ProcessingPending}
	reg := &fakeRegistry{files: make(map[string]entity.UploadedFile)}
	pipe := ocr.NewPipeline(stubRasterizer{}, func() ocr.Engine { return eng }, logger)
	return NewProcessor(apps, reg, pipe, logger), apps, reg
}

func stageUpload(t *testing.T, reg *fakeRegistry, id string) entity.UploadedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.jpg")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := entity.UploadedFile{
		ID: id, Path: path, OriginalName: "scan.jpg",
		DocumentType: "loan-application", ContentHash: "deadbeef", SizeBytes: 3,
	}
	reg.files[id] = f
	return f
}

func TestProcessDocumentSuccess(t *testing.T) {
	proc, apps, reg := newTestProcessor(t, stubEngine{
		text: "Name: John Smith Loan Amount: $250,000", conf: 85,
	})
	f := stageUpload(t, reg, "file-1")
	appID := uuid.New()

	if err := proc.ProcessDocument(context.Background(), appID, "file-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	if apps.processing != constants.ProcessingCompleted {
		t.Errorf("processing status = %s, want completed", apps.processing)
	}
	if apps.method != "image-ocr" {
		t.Errorf("method = %q, want image-ocr", apps.method)
	}
	if apps.confidence != 85 {
		t.Errorf("confidence = %v, want 85", apps.confidence)
	}

	var data map[string]any
	if err := json.Unmarshal(apps.extracted, &data); err != nil {
		t.Fatalf("stored extraction is not JSON: %v", err)
	}
	if data["applicant_name"] != "John Smith" {
		t.Errorf("stored applicant_name = %v", data["applicant_name"])
	}

	if len(apps.docs) != 1 || apps.docs[0].ContentHash != "deadbeef" {
		t.Errorf("docs = %+v, want one attached document", apps.docs)
	}

	// Consumed upload is released.
	if len(reg.deleted) != 1 || reg.deleted[0] != "file-1" {
		t.Errorf("deleted = %v, want [file-1]", reg.deleted)
	}
	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Errorf("staged file %s should be removed", f.Path)
	}
}

func TestProcessDocumentFailureKeepsUpload(t *testing.T) {
	proc, apps, reg := newTestProcessor(t, stubEngine{err: errors.New("engine exploded")})
	f := stageUpload(t, reg, "file-2")

	if err := proc.ProcessDocument(context.Background(), uuid.New(), "file-2"); err != nil {
		t.Fatalf("failed extraction still persists a result: %v", err)
	}

	if apps.processing != constants.ProcessingError {
		t.Errorf("processing status = %s, want error", apps.processing)
	}
	if apps.errMsg == nil || *apps.errMsg == "" {
		t.Error("error message should be recorded")
	}
	if len(apps.extracted) == 0 {
		t.Error("sentinel extraction should still be saved for review")
	}

	// The upload survives so the document can be retried.
	if len(reg.deleted) != 0 {
		t.Errorf("deleted = %v, want none on failure", reg.deleted)
	}
	if _, err := os.Stat(f.Path); err != nil {
		t.Errorf("staged file should survive failure: %v", err)
	}
}

func TestProcessDocumentRetryAfterError(t *testing.T) {
	proc, apps, reg := newTestProcessor(t, stubEngine{text: "Name: Jane Doe\n", conf: 70})
	stageUpload(t, reg, "file-3")
	apps.processing = constants.ProcessingError

	if err := proc.ProcessDocument(context.Background(), uuid.New(), "file-3"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if apps.processing != constants.ProcessingCompleted {
		t.Errorf("processing status = %s, want completed after retry", apps.processing)
	}
}

func TestProcessDocumentUnknownFile(t *testing.T) {
	proc, apps, _ := newTestProcessor(t, stubEngine{})

	err := proc.ProcessDocument(context.Background(), uuid.New(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if apps.processing != constants.ProcessingPending {
		t.Errorf("processing status = %s, want untouched pending", apps.processing)
	}
}
