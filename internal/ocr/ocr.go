// Package ocr defines the detection types produced by local text recognition
// and the engine interface the frame loop depends on.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrUnavailable is returned when the local OCR engine could not be initialized.
// The frame loop treats it as a failure of the local path only.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon is a 4-point bounding box ordered top-left, top-right,
// bottom-right, bottom-left.
type Polygon [4]Point

// RectPolygon converts an axis-aligned rectangle to a Polygon.
func RectPolygon(r image.Rectangle) Polygon {
	return Polygon{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// TopLeft returns the first corner of the polygon.
func (p Polygon) TopLeft() Point {
	return p[0]
}

// Height returns max(y) - min(y) over all four corners.
func (p Polygon) Height() int {
	minY, maxY := p[0].Y, p[0].Y
	for _, pt := range p[1:] {
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return maxY - minY
}

// Scale multiplies every coordinate by f, rounding to the nearest pixel.
func (p Polygon) Scale(f float64) Polygon {
	var out Polygon
	for i, pt := range p {
		out[i] = Point{
			X: int(math.Round(float64(pt.X) * f)),
			Y: int(math.Round(float64(pt.Y) * f)),
		}
	}
	return out
}

// Detection is one recognized text fragment.
type Detection struct {
	Box        Polygon `json:"bbox"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-1
}

// Engine recognizes text fragments in a frame.
type Engine interface {
	Name() string
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, img image.Image) ([]Detection, error)

// Name returns "func".
func (f EngineFunc) Name() string { return "func" }

// Detect calls f.
func (f EngineFunc) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

// Unavailable is an Engine that always fails with ErrUnavailable.
// It stands in for an engine whose initialization failed so the rest of
// the pipeline keeps running.
type Unavailable struct {
	Reason error
}

// Name returns "unavailable".
func (u Unavailable) Name() string { return "unavailable" }

// Detect always returns ErrUnavailable.
func (u Unavailable) Detect(context.Context, image.Image) ([]Detection, error) {
	if u.Reason == nil {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
}

// ScaleDetections returns copies of dets with every box scaled by f.
func ScaleDetections(dets []Detection, f float64) []Detection {
	out := make([]Detection, len(dets))
	for i, d := range dets {
		out[i] = Detection{Box: d.Box.Scale(f), Text: d.Text, Confidence: d.Confidence}
	}
	return out
}
