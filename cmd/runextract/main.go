package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/ocr"
	"github.com/fintrack-labs/loandocs/internal/parse"
)

// runextract runs the extraction pipeline on one local file and prints the
// result as JSON. No database, no registry: handy for tuning rules against a
// problem document.
func main() {
	docType := flag.String("type", "", "document type hint (id-proof, income-statement, loan-application, bank-statement)")
	timeout := flag.Duration("timeout", 2*time.Minute, "processing deadline")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runextract [-type <doc-type>] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rasterizer := ocr.NewMagickRasterizer(cfg.OCR.Magick, cfg.OCR.DPI, cfg.OCR.Quality, logger)
	rasterizer.MaxPages = cfg.OCR.MaxPages
	factory := func() ocr.Engine { return ocr.NewTesseractEngine(cfg.OCR.Language) }
	pipe := ocr.NewPipeline(rasterizer, factory, logger)

	res := pipe.Process(ctx, path, *docType)
	validation := parse.Validate(res.Data)

	out := map[string]any{
		"data":        res.Data,
		"validation":  validation,
		"status":      string(res.Status),
		"method":      res.Method,
		"pages":       res.Pages,
		"duration_ms": res.Duration.Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
