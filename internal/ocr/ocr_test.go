package ocr

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestPolygonHeight(t *testing.T) {
	tests := []struct {
		name string
		poly Polygon
		want int
	}{
		{"axis aligned", RectPolygon(image.Rect(0, 10, 50, 30)), 20},
		{"skewed", Polygon{{0, 12}, {40, 8}, {42, 28}, {2, 33}}, 25},
		{"degenerate", Polygon{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.poly.Height(); got != tt.want {
				t.Errorf("Height() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRectPolygonOrder(t *testing.T) {
	p := RectPolygon(image.Rect(1, 2, 11, 22))
	want := Polygon{{1, 2}, {11, 2}, {11, 22}, {1, 22}}
	if p != want {
		t.Fatalf("RectPolygon() = %v, want %v", p, want)
	}
	if p.TopLeft() != (Point{1, 2}) {
		t.Errorf("TopLeft() = %v", p.TopLeft())
	}
}

func TestScaleDetections(t *testing.T) {
	in := []Detection{{Box: RectPolygon(image.Rect(10, 10, 20, 15)), Text: "hi", Confidence: 0.9}}
	out := ScaleDetections(in, 2.5)

	want := Polygon{{25, 25}, {50, 25}, {50, 38}, {25, 38}}
	if out[0].Box != want {
		t.Errorf("scaled box = %v, want %v", out[0].Box, want)
	}
	if in[0].Box[0].X != 10 {
		t.Error("input detections must not be modified")
	}
	if out[0].Text != "hi" || out[0].Confidence != 0.9 {
		t.Errorf("text/confidence not preserved: %+v", out[0])
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{Reason: errors.New("no tessdata")}.Detect(context.Background(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	_, err = Unavailable{}.Detect(context.Background(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
