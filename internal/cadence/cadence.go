// Package cadence decides which frames get a local OCR pass and prepares
// them at a reduced width.
package cadence

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	DefaultSkipInterval = 5
	DefaultTargetWidth  = 640
)

// Config holds the frame budget settings.
type Config struct {
	SkipInterval int // process every Nth frame, >= 1
	TargetWidth  int // OCR input width in pixels
}

func (c Config) normalized() Config {
	if c.SkipInterval < 1 {
		c.SkipInterval = DefaultSkipInterval
	}
	if c.TargetWidth <= 0 {
		c.TargetWidth = DefaultTargetWidth
	}
	return c
}

// Prepared is a frame ready for OCR. Multiplying OCR coordinates by
// ScaleFactor maps them back to the original frame.
type Prepared struct {
	Image       image.Image
	ScaleFactor float64
}

// Controller applies the frame-skip policy. Settings can be changed while
// the frame loop runs.
type Controller struct {
	mu  sync.RWMutex
	cfg Config
}

// New creates a Controller. Zero values fall back to defaults.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg.normalized()}
}

// Reconfigure swaps the settings used for subsequent frames.
func (c *Controller) Reconfigure(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg.normalized()
	c.mu.Unlock()
}

// Config returns the active settings.
func (c *Controller) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// ShouldProcess reports whether frame number counter gets an OCR pass.
func (c *Controller) ShouldProcess(counter uint64) bool {
	n := uint64(c.Config().SkipInterval)
	return counter%n == 0
}

// Prepare downscales img to the target width, preserving aspect ratio.
// Frames already at or below the target width pass through unscaled.
// It returns false for frames with no pixels.
func (c *Controller) Prepare(img image.Image) (Prepared, bool) {
	if img == nil {
		return Prepared{}, false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Prepared{}, false
	}

	target := c.Config().TargetWidth
	if w <= target {
		return Prepared{Image: img, ScaleFactor: 1}, true
	}

	resized := imaging.Resize(img, target, 0, imaging.NearestNeighbor)
	return Prepared{
		Image:       resized,
		ScaleFactor: float64(w) / float64(target),
	}, true
}
