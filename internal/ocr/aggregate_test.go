package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeEngine struct {
	recognize func(path string) (Recognition, error)
	closed    int
}

func (e *fakeEngine) Recognize(_ context.Context, path string) (Recognition, error) {
	return e.recognize(path)
}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

// engineTracker hands out fake engines and remembers them so tests can check
// every acquired engine was released exactly once.
type engineTracker struct {
	recognize func(path string) (Recognition, error)
	engines   []*fakeEngine
}

func (t *engineTracker) factory() Engine {
	e := &fakeEngine{recognize: t.recognize}
	t.engines = append(t.engines, e)
	return e
}

func (t *engineTracker) assertBalanced(tt *testing.T) {
	tt.Helper()
	for i, e := range t.engines {
		if e.closed != 1 {
			tt.Errorf("engine %d closed %d times, want 1", i, e.closed)
		}
	}
}

func writePages(t *testing.T, dir string, n int) []RasterPage {
	t.Helper()
	pages := make([]RasterPage, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc-%d.jpg", i))
		if err := os.WriteFile(path, []byte("jpg"), 0o644); err != nil {
			t.Fatal(err)
		}
		pages[i] = RasterPage{Path: path, Ordinal: i}
	}
	return pages
}

func TestProcessPagesEmpty(t *testing.T) {
	tracker := &engineTracker{recognize: func(string) (Recognition, error) {
		t.Fatal("engine must not run for an empty batch")
		return Recognition{}, nil
	}}
	a := NewAggregator(tracker.factory, testLogger())

	rec, err := a.ProcessPages(context.Background(), nil)
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if rec.Text != "" || rec.Confidence != 0 {
		t.Errorf("rec = %+v, want empty text and zero confidence", rec)
	}
	if len(tracker.engines) != 0 {
		t.Errorf("created %d engines for empty batch, want 0", len(tracker.engines))
	}
}

func TestProcessPagesJoinsInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc-pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	pages := writePages(t, dir, 3)

	conf := map[string]float64{
		pages[0].Path: 90,
		pages[1].Path: 80,
		pages[2].Path: 70,
	}
	tracker := &engineTracker{recognize: func(path string) (Recognition, error) {
		return Recognition{Text: "text of " + filepath.Base(path), Confidence: conf[path]}, nil
	}}
	a := NewAggregator(tracker.factory, testLogger())

	rec, err := a.ProcessPages(context.Background(), pages)
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	want := "text of doc-0.jpg\n\ntext of doc-1.jpg\n\ntext of doc-2.jpg"
	if rec.Text != want {
		t.Errorf("text = %q, want %q", rec.Text, want)
	}
	if rec.Confidence != 80 {
		t.Errorf("confidence = %v, want 80 (mean of 90, 80, 70)", rec.Confidence)
	}

	// One engine drove the whole batch and was released once.
	if len(tracker.engines) != 1 {
		t.Errorf("created %d engines, want 1", len(tracker.engines))
	}
	tracker.assertBalanced(t)

	// Scratch files and their directory are gone.
	for _, p := range pages {
		if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
			t.Errorf("page %s still on disk", p.Path)
		}
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("raster dir %s still on disk", dir)
	}
}

func TestProcessPagesAbortsOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc-pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	pages := writePages(t, dir, 3)

	boom := errors.New("recognition blew up")
	tracker := &engineTracker{recognize: func(path string) (Recognition, error) {
		if path == pages[1].Path {
			return Recognition{}, boom
		}
		return Recognition{Text: "ok", Confidence: 50}, nil
	}}
	a := NewAggregator(tracker.factory, testLogger())

	_, err := a.ProcessPages(context.Background(), pages)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the page error", err)
	}
	tracker.assertBalanced(t)

	// The consumed page is gone; the unprocessed ones survive, so the
	// directory must be left in place.
	if _, err := os.Stat(pages[0].Path); !os.IsNotExist(err) {
		t.Errorf("processed page %s should be deleted", pages[0].Path)
	}
	if _, err := os.Stat(pages[2].Path); err != nil {
		t.Errorf("unprocessed page %s should survive: %v", pages[2].Path, err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("non-empty raster dir should survive: %v", err)
	}
}

func TestProcessPagesSinglePageMatchesDirectRecognition(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc-pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	pages := writePages(t, dir, 1)

	recognize := func(string) (Recognition, error) {
		return Recognition{Text: "single page text", Confidence: 87.5}, nil
	}
	tracker := &engineTracker{recognize: recognize}
	a := NewAggregator(tracker.factory, testLogger())

	rec, err := a.ProcessPages(context.Background(), pages)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	direct, _ := recognize("")
	if rec != direct {
		t.Errorf("aggregated single page = %+v, want %+v", rec, direct)
	}
}
