package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRasterizer struct {
	available bool
	pages     []RasterPage
	err       error
}

func (f fakeRasterizer) IsAvailable(context.Context) bool { return f.available }

func (f fakeRasterizer) Rasterize(context.Context, string) ([]RasterPage, error) {
	return f.pages, f.err
}

const scanText = "Name: John Smith Address: 123 Main St City: Springfield State: IL ZIP: 62704 Monthly Income: $4,500 Employer: Acme Corp Loan Amount: $250,000"

func TestProcessImageExtractsFields(t *testing.T) {
	tracker := &engineTracker{recognize: func(string) (Recognition, error) {
		return Recognition{Text: scanText, Confidence: 92}, nil
	}}
	p := NewPipeline(fakeRasterizer{}, tracker.factory, testLogger())

	res := p.Process(context.Background(), "scan.jpg", "")

	if res.Status != StatusOK {
		t.Errorf("status = %q, want ok", res.Status)
	}
	if res.Method != "image-ocr" {
		t.Errorf("method = %q, want image-ocr", res.Method)
	}
	if res.Data.ApplicantName != "John Smith" {
		t.Errorf("applicant name = %q, want John Smith", res.Data.ApplicantName)
	}
	if res.Data.LoanAmount != 250000 {
		t.Errorf("loan amount = %v, want 250000", res.Data.LoanAmount)
	}
	if res.Data.OCRData.RawText != scanText {
		t.Errorf("raw text not carried through")
	}
	if res.Data.OCRData.Confidence != 92 {
		t.Errorf("confidence = %v, want 92", res.Data.OCRData.Confidence)
	}
	tracker.assertBalanced(t)
}

func TestProcessNeverFails(t *testing.T) {
	boom := errors.New("engine exploded")

	tests := []struct {
		name         string
		path         string
		rast         fakeRasterizer
		recognizeErr error
		wantStatus   Status
		wantPrefix   string
	}{
		{
			name:         "image recognition failure",
			path:         "scan.png",
			recognizeErr: boom,
			wantStatus:   StatusFailed,
			wantPrefix:   "Error processing image:",
		},
		{
			name:       "pdf rasterization failure",
			path:       "doc.pdf",
			rast:       fakeRasterizer{available: true, err: errors.New("convert crashed")},
			wantStatus: StatusFailed,
			wantPrefix: "Error processing PDF:",
		},
		{
			name:         "tool missing and direct recognition fails",
			path:         "doc.pdf",
			rast:         fakeRasterizer{available: false},
			recognizeErr: boom,
			wantStatus:   StatusDegraded,
			wantPrefix:   "PDF processing failed. Please install ImageMagick",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &engineTracker{recognize: func(string) (Recognition, error) {
				if tt.recognizeErr != nil {
					return Recognition{}, tt.recognizeErr
				}
				return Recognition{Text: "ok", Confidence: 60}, nil
			}}
			p := NewPipeline(tt.rast, tracker.factory, testLogger())

			res := p.Process(context.Background(), tt.path, "")

			if res.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", res.Status, tt.wantStatus)
			}
			if !strings.HasPrefix(res.Data.OCRData.RawText, tt.wantPrefix) {
				t.Errorf("raw text = %q, want prefix %q", res.Data.OCRData.RawText, tt.wantPrefix)
			}
			if res.Data.OCRData.Confidence != 0 {
				t.Errorf("confidence = %v, want 0 on failure", res.Data.OCRData.Confidence)
			}
			tracker.assertBalanced(t)
		})
	}
}

func TestProcessPDFToolMissingUsesDirectRecognition(t *testing.T) {
	tracker := &engineTracker{recognize: func(string) (Recognition, error) {
		return Recognition{Text: "Name: Jane Doe\n", Confidence: 40}, nil
	}}
	p := NewPipeline(fakeRasterizer{available: false}, tracker.factory, testLogger())

	res := p.Process(context.Background(), "doc.pdf", "")

	if res.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded", res.Status)
	}
	if res.Method != "pdf-direct-ocr" {
		t.Errorf("method = %q, want pdf-direct-ocr", res.Method)
	}
	if res.Data.ApplicantName != "Jane Doe" {
		t.Errorf("applicant name = %q, want Jane Doe", res.Data.ApplicantName)
	}
	tracker.assertBalanced(t)
}

func TestProcessPDFAggregatesPages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc-pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	pages := writePages(t, dir, 2)

	texts := map[string]string{
		pages[0].Path: "Name: John Smith",
		pages[1].Path: "Loan Amount: $75,000",
	}
	tracker := &engineTracker{recognize: func(path string) (Recognition, error) {
		return Recognition{Text: texts[path], Confidence: 88}, nil
	}}
	p := NewPipeline(fakeRasterizer{available: true, pages: pages}, tracker.factory, testLogger())

	res := p.Process(context.Background(), "doc.pdf", "")

	if res.Status != StatusOK {
		t.Fatalf("status = %q, want ok", res.Status)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if res.Method != "pdf-raster-ocr" {
		t.Errorf("method = %q, want pdf-raster-ocr", res.Method)
	}
	want := "Name: John Smith\n\nLoan Amount: $75,000"
	if res.Data.OCRData.RawText != want {
		t.Errorf("raw text = %q, want %q", res.Data.OCRData.RawText, want)
	}
	if res.Data.ApplicantName != "John Smith" {
		t.Errorf("applicant name = %q, want John Smith", res.Data.ApplicantName)
	}
	if res.Data.LoanAmount != 75000 {
		t.Errorf("loan amount = %v, want 75000", res.Data.LoanAmount)
	}
	if res.Data.OCRData.Confidence != 88 {
		t.Errorf("confidence = %v, want 88", res.Data.OCRData.Confidence)
	}
	tracker.assertBalanced(t)
}
