package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fintrack-labs/loandocs/internal/parse"
)

// Status classifies a pipeline outcome so callers never have to sniff
// sentinel text to detect failure.
type Status string

const (
	StatusOK       Status = "ok"       // primary path succeeded
	StatusDegraded Status = "degraded" // conversion tool missing, fallback used
	StatusFailed   Status = "failed"   // an error was converted to sentinel output
)

// pdfFallbackSentinel is shown to the reviewer when the conversion tool is
// missing and direct recognition of the PDF failed too.
const pdfFallbackSentinel = "PDF processing failed. Please install ImageMagick for PDF support or upload images instead."

// Result is the pipeline outcome: always structurally complete, even when
// processing failed.
type Result struct {
	Data     parse.ExtractedApplicationData
	Status   Status
	Method   string // "pdf-raster-ocr" | "pdf-direct-ocr" | "image-ocr"
	Pages    int
	Duration time.Duration
	Warnings []string
}

// Pipeline is the document extraction entry point: file path in, structured
// application data out.
type Pipeline struct {
	rasterizer Rasterizer
	newEngine  EngineFactory
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewPipeline(rasterizer Rasterizer, factory EngineFactory, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		rasterizer: rasterizer,
		newEngine:  factory,
		aggregator: NewAggregator(factory, logger),
		logger:     logger,
	}
}

// Process extracts structured data from a scanned document. It never fails:
// every error path degrades into sentinel text with zero confidence, and the
// field extractor always runs, so the caller always receives a complete
// result. Inspect Result.Status for the outcome class.
//
// docType hints which extraction rules matter most; pass "" to run them all.
func (p *Pipeline) Process(ctx context.Context, path, docType string) Result {
	start := time.Now()

	var (
		rec    Recognition
		status Status
		method string
		pages  int
		warns  []string
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		rec, status, method, pages, warns = p.processPDF(ctx, path)
	} else {
		rec, status, method, warns = p.processImage(ctx, path)
		pages = 1
	}

	data := parse.ExtractForType(rec.Text, docType)
	data.OCRData = parse.OCRData{RawText: rec.Text, Confidence: rec.Confidence}

	dur := time.Since(start)
	p.logger.Info("document processed",
		"path", path,
		"status", string(status),
		"method", method,
		"pages", pages,
		"confidence", rec.Confidence,
		"text_bytes", len(rec.Text),
		"duration_ms", dur.Milliseconds(),
	)

	return Result{
		Data:     data,
		Status:   status,
		Method:   method,
		Pages:    pages,
		Duration: dur,
		Warnings: warns,
	}
}

func (p *Pipeline) processPDF(ctx context.Context, path string) (Recognition, Status, string, int, []string) {
	if !p.rasterizer.IsAvailable(ctx) {
		// Degraded path: feed the PDF straight to the engine. Engines expect
		// raster images, so this usually yields empty or garbage text, but
		// the result stays structurally valid.
		p.logger.Warn("conversion tool unavailable; attempting direct pdf recognition", "path", path)
		rec, err := p.recognizeOnce(ctx, path)
		if err != nil {
			return Recognition{Text: pdfFallbackSentinel, Confidence: 0},
				StatusDegraded, "pdf-direct-ocr", 0, []string{err.Error()}
		}
		return rec, StatusDegraded, "pdf-direct-ocr", 1, nil
	}

	rasterPages, err := p.rasterizer.Rasterize(ctx, path)
	if err != nil {
		return Recognition{Text: fmt.Sprintf("Error processing PDF: %v", err), Confidence: 0},
			StatusFailed, "pdf-raster-ocr", 0, []string{err.Error()}
	}

	rec, err := p.aggregator.ProcessPages(ctx, rasterPages)
	if err != nil {
		return Recognition{Text: fmt.Sprintf("Error processing PDF: %v", err), Confidence: 0},
			StatusFailed, "pdf-raster-ocr", len(rasterPages), []string{err.Error()}
	}
	return rec, StatusOK, "pdf-raster-ocr", len(rasterPages), nil
}

func (p *Pipeline) processImage(ctx context.Context, path string) (Recognition, Status, string, []string) {
	rec, err := p.recognizeOnce(ctx, path)
	if err != nil {
		return Recognition{Text: fmt.Sprintf("Error processing image: %v", err), Confidence: 0},
			StatusFailed, "image-ocr", []string{err.Error()}
	}
	return rec, StatusOK, "image-ocr", nil
}

// recognizeOnce runs a single-image batch: engine acquired, used once, torn
// down on every exit path.
func (p *Pipeline) recognizeOnce(ctx context.Context, path string) (Recognition, error) {
	eng := p.newEngine()
	defer func() {
		if err := eng.Close(); err != nil {
			p.logger.Error("engine close failed", "error", err)
		}
	}()
	return eng.Recognize(ctx, path)
}
