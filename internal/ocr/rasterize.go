package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Runner abstracts the conversion tool invocation so rasterizer tests can
// stub ImageMagick instead of shelling out.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner shells out for real. Stderr is captured whole: ImageMagick
// reports decode failures there and ConversionError forwards it to the
// reviewer-facing error message.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()

	if err != nil {
		r.logger.Error("conversion tool failed",
			"tool", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", clipOutput(errb.String()),
		)
	} else {
		r.logger.Debug("conversion tool ok",
			"tool", name,
			"pages_output", out.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// clipOutput keeps a failing tool's diagnostics loggable; a corrupt PDF can
// make ImageMagick emit one line per damaged object.
func clipOutput(s string) string {
	const max = 8 << 10
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// RasterPage is one rendered PDF page on disk. Pages are scratch state owned
// by the job that created them; the aggregator deletes each one after its
// text is captured.
type RasterPage struct {
	Path    string
	Ordinal int
}

// Rasterizer turns a PDF into an ordered sequence of per-page raster images.
type Rasterizer interface {
	// IsAvailable is a cheap pre-flight probe so callers can pick a degraded
	// path without failing on every document.
	IsAvailable(ctx context.Context) bool
	Rasterize(ctx context.Context, pdfPath string) ([]RasterPage, error)
}

// MagickRasterizer shells out to ImageMagick. Pages land in a sibling
// directory named after the source file, so concurrent conversions of
// differently-named files never collide.
type MagickRasterizer struct {
	Magick   string // binary name or absolute path; if empty -> "magick"
	DPI      int    // default 300
	Quality  int    // default 100
	MaxPages int    // cap on pages returned; 0 = no limit

	runner Runner
	logger *slog.Logger
}

func NewMagickRasterizer(magick string, dpi, quality int, logger *slog.Logger) *MagickRasterizer {
	if magick == "" {
		magick = "magick"
	}
	if dpi <= 0 {
		dpi = 300
	}
	if quality <= 0 {
		quality = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MagickRasterizer{Magick: magick, DPI: dpi, Quality: quality, runner: execRunner{logger: logger}, logger: logger}
}

// IsAvailable probes the conversion tool.
func (m *MagickRasterizer) IsAvailable(ctx context.Context) bool {
	_, _, err := m.runner.Run(ctx, m.Magick, "--version")
	return err == nil
}

// pageOrdinal extracts n from the tool's "<basename>-<n>.jpg" naming convention.
var pageOrdinal = regexp.MustCompile(`-(\d+)\.jpg$`)

// Rasterize renders every page of the PDF into <dir>/<base>-pages/<base>-%d.jpg
// and returns the pages in page order. Ordinals are compared numerically so
// page 10 never sorts before page 2.
func (m *MagickRasterizer) Rasterize(ctx context.Context, pdfPath string) ([]RasterPage, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("pdf not found: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outDir := filepath.Join(filepath.Dir(pdfPath), base+"-pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}

	pattern := filepath.Join(outDir, base+"-%d.jpg")
	// magick convert -density 300 <in.pdf> -quality 100 <dir>/<base>-%d.jpg
	_, errb, err := m.runner.Run(ctx, m.Magick,
		"convert",
		"-density", strconv.Itoa(m.DPI),
		pdfPath,
		"-quality", strconv.Itoa(m.Quality),
		pattern,
	)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversionUnavailable
		}
		return nil, &ConversionError{Output: string(errb), Err: err}
	}

	matches, _ := filepath.Glob(filepath.Join(outDir, base+"-*.jpg"))
	pages := make([]RasterPage, 0, len(matches))
	for _, path := range matches {
		sub := pageOrdinal.FindStringSubmatch(path)
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		pages = append(pages, RasterPage{Path: path, Ordinal: n})
	}
	if len(pages) == 0 {
		return nil, &ConversionError{Err: errors.New("no pages rendered")}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Ordinal < pages[j].Ordinal })

	if m.MaxPages > 0 && len(pages) > m.MaxPages {
		// Drop the overflow renders now; nothing downstream will consume them.
		for _, p := range pages[m.MaxPages:] {
			if err := os.Remove(p.Path); err != nil {
				m.logger.Warn("failed to remove overflow page", "path", p.Path, "error", err)
			}
		}
		m.logger.Warn("page limit applied", "path", pdfPath, "rendered", len(pages), "kept", m.MaxPages)
		pages = pages[:m.MaxPages]
	}

	m.logger.Debug("pdf rasterized", "path", pdfPath, "pages", len(pages), "dir", outDir)
	return pages, nil
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.Is(execErr.Err, exec.ErrNotFound)
	}
	return errors.Is(err, exec.ErrNotFound)
}
