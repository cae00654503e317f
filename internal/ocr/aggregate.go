package ocr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Aggregator drives one engine instance across the pages of a multi-page job
// and merges the per-page results into a single recognition.
type Aggregator struct {
	newEngine EngineFactory
	logger    *slog.Logger
}

func NewAggregator(factory EngineFactory, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{newEngine: factory, logger: logger}
}

// ProcessPages recognizes pages sequentially, in order, on a single engine
// instance (batch-scoped reuse bounds memory; pages are never recognized
// concurrently). Page texts are joined with a blank line; confidence is the
// arithmetic mean across pages.
//
// Each page's raster file is deleted as soon as its text is captured, and
// the page directory is removed once it is empty. A failure on any page
// aborts the batch; the engine is still torn down and already-processed
// pages stay deleted.
func (a *Aggregator) ProcessPages(ctx context.Context, pages []RasterPage) (Recognition, error) {
	if len(pages) == 0 {
		return Recognition{Text: "", Confidence: 0}, nil
	}

	eng := a.newEngine()
	defer func() {
		if err := eng.Close(); err != nil {
			a.logger.Error("engine close failed", "error", err)
		}
	}()

	dir := filepath.Dir(pages[0].Path)
	var b strings.Builder
	var confSum float64

	for i, page := range pages {
		rec, err := eng.Recognize(ctx, page.Path)
		if err != nil {
			a.logger.Error("page recognition failed",
				"page", page.Ordinal, "path", page.Path, "error", err)
			return Recognition{}, err
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(rec.Text)
		confSum += rec.Confidence

		a.removePage(page)
	}

	a.removeDirIfEmpty(dir)

	return Recognition{
		Text:       b.String(),
		Confidence: confSum / float64(len(pages)),
	}, nil
}

// removePage deletes a consumed raster file. A leftover temp file is a
// disk-space nuisance, not a correctness failure, so errors only log.
func (a *Aggregator) removePage(page RasterPage) {
	if err := os.Remove(page.Path); err != nil {
		a.logger.Warn("failed to remove raster page", "path", page.Path, "error", err)
	}
}

// removeDirIfEmpty removes the raster directory only when nothing remains in
// it. A non-empty directory means something went wrong; leave it for manual
// inspection.
func (a *Aggregator) removeDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		a.logger.Warn("failed to read raster dir", "dir", dir, "error", err)
		return
	}
	if len(entries) > 0 {
		a.logger.Warn("raster dir not empty after aggregation; leaving in place",
			"dir", dir, "remaining", len(entries))
		return
	}
	if err := os.Remove(dir); err != nil {
		a.logger.Warn("failed to remove raster dir", "dir", dir, "error", err)
	}
}
