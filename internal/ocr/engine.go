package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// Recognition is one engine result for one image. Created fresh per call and
// consumed immediately by the aggregator.
type Recognition struct {
	Text       string
	Confidence float64 // engine-reported scale, 0-100
}

// Engine is a text-recognition instance scoped to one logical batch: a single
// image, or every page of a multi-page job. Close must be safe on every exit
// path, including before first use.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
	Close() error
}

// EngineFactory builds one engine per batch. Instances are independent, so
// concurrent jobs may each hold their own.
type EngineFactory func() Engine

// TesseractEngine wraps a gosseract client. The native client is created
// lazily on first recognition so an unused engine costs nothing, and torn
// down by Close.
type TesseractEngine struct {
	lang   string
	client *gosseract.Client
}

func NewTesseractEngine(lang string) *TesseractEngine {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{lang: lang}
}

func (e *TesseractEngine) init() error {
	if e.client != nil {
		return nil
	}
	c := gosseract.NewClient()
	if err := c.SetLanguage(e.lang); err != nil {
		_ = c.Close()
		return err
	}
	e.client = c
	return nil
}

// Recognize runs OCR on one image file. The engine stays usable for further
// calls in the same batch; on init failure it is left fully torn down.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, &RecognitionError{Path: imagePath, Err: err}
	}
	if err := e.init(); err != nil {
		return Recognition{}, &RecognitionError{Path: imagePath, Err: err}
	}
	if err := e.client.SetImage(imagePath); err != nil {
		return Recognition{}, &RecognitionError{Path: imagePath, Err: err}
	}
	text, err := e.client.Text()
	if err != nil {
		return Recognition{}, &RecognitionError{Path: imagePath, Err: err}
	}
	return Recognition{Text: text, Confidence: e.meanWordConfidence()}, nil
}

// meanWordConfidence averages tesseract's word-level confidences for the
// image currently loaded. No renormalization: whatever scale the engine
// reports is what callers see.
func (e *TesseractEngine) meanWordConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

// Close releases the native recognition context. Safe to call when the
// client was never initialized, and idempotent.
func (e *TesseractEngine) Close() error {
	if e.client == nil {
		return nil
	}
	c := e.client
	e.client = nil
	return c.Close()
}
