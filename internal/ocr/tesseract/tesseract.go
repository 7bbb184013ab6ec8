// Package tesseract provides a local OCR engine backed by gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/sightspeech/internal/ocr"
)

// Config configures the engine.
type Config struct {
	Languages     []string // default: eng
	MinConfidence float64  // 0-1, boxes below are dropped
}

// Engine runs word-level recognition with a single long-lived tesseract client.
// The client is not safe for concurrent use, so calls are serialized.
type Engine struct {
	mu            sync.Mutex
	client        *gosseract.Client
	minConfidence float64
}

// New creates an Engine. Errors wrap ocr.ErrUnavailable.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: set languages: %v", ocr.ErrUnavailable, err)
	}

	return &Engine{client: client, minConfidence: cfg.MinConfidence}, nil
}

// Name returns "tesseract".
func (e *Engine) Name() string { return "tesseract" }

// Detect returns one detection per recognized word.
func (e *Engine) Detect(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}

	dets := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		conf := b.Confidence / 100.0
		if conf < e.minConfidence {
			continue
		}
		dets = append(dets, ocr.Detection{
			Box:        ocr.RectPolygon(b.Box),
			Text:       word,
			Confidence: conf,
		})
	}
	return dets, nil
}

// Close releases the tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

var _ ocr.Engine = (*Engine)(nil)
