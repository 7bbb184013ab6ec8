// Package layout reorders OCR detections into natural reading order by
// clustering them into visual rows.
package layout

import (
	"math"
	"sort"

	"github.com/jackzampolin/sightspeech/internal/ocr"
)

// TolerancePolicy selects how the per-frame row tolerance is estimated.
type TolerancePolicy int

const (
	// TolerancePolicyFirst derives the tolerance from the first detection's height.
	TolerancePolicyFirst TolerancePolicy = iota
	// TolerancePolicyMedian derives the tolerance from the median detection height.
	TolerancePolicyMedian
)

// ParseTolerancePolicy maps a config string to a policy. Unknown values
// fall back to TolerancePolicyFirst.
func ParseTolerancePolicy(s string) TolerancePolicy {
	if s == "median" {
		return TolerancePolicyMedian
	}
	return TolerancePolicyFirst
}

// Options controls line clustering.
type Options struct {
	Tolerance    TolerancePolicy
	MinTolerance float64 // floor for the estimate, default 10px
	HeightRatio  float64 // fraction of the reference height, default 0.5
	Fixed        float64 // when > 0, used as-is and no estimate is made
}

// DefaultOptions returns the first-detection policy with a 10px floor
// and half-height ratio.
func DefaultOptions() Options {
	return Options{
		Tolerance:    TolerancePolicyFirst,
		MinTolerance: 10,
		HeightRatio:  0.5,
	}
}

func (o Options) withDefaults() Options {
	if o.MinTolerance <= 0 {
		o.MinTolerance = 10
	}
	if o.HeightRatio <= 0 {
		o.HeightRatio = 0.5
	}
	return o
}

// EstimateTolerance returns the vertical distance within which two
// detections are considered to share a row. The estimate is made once per
// frame and reused for every line.
func EstimateTolerance(dets []ocr.Detection, opts Options) float64 {
	opts = opts.withDefaults()
	if opts.Fixed > 0 {
		return opts.Fixed
	}
	if len(dets) == 0 {
		return opts.MinTolerance
	}

	var ref float64
	switch opts.Tolerance {
	case TolerancePolicyMedian:
		heights := make([]int, len(dets))
		for i, d := range dets {
			heights[i] = d.Box.Height()
		}
		sort.Ints(heights)
		mid := len(heights) / 2
		if len(heights)%2 == 0 {
			ref = float64(heights[mid-1]+heights[mid]) / 2
		} else {
			ref = float64(heights[mid])
		}
	default:
		ref = float64(dets[0].Box.Height())
	}

	return math.Max(opts.MinTolerance, opts.HeightRatio*ref)
}

// Lines groups detections into rows. Detections are swept in ascending
// top-left y order; a detection joins the open row while its top-left y is
// within tolerance of the row's first detection, otherwise a new row opens.
// Each row is sorted left to right. Rows are returned in the order they
// were opened.
func Lines(dets []ocr.Detection, opts Options) [][]ocr.Detection {
	if len(dets) == 0 {
		return nil
	}
	tol := EstimateTolerance(dets, opts)

	sorted := make([]ocr.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.TopLeft().Y < sorted[j].Box.TopLeft().Y
	})

	var lines [][]ocr.Detection
	var current []ocr.Detection
	var anchorY int
	for _, d := range sorted {
		y := d.Box.TopLeft().Y
		if len(current) > 0 && math.Abs(float64(y-anchorY)) <= tol {
			current = append(current, d)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, current)
		}
		current = []ocr.Detection{d}
		anchorY = y
	}
	lines = append(lines, current)

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Box.TopLeft().X < line[j].Box.TopLeft().X
		})
	}
	return lines
}

// Reconstruct returns dets in reading order. The result is a permutation
// of the input.
func Reconstruct(dets []ocr.Detection, opts Options) []ocr.Detection {
	lines := Lines(dets, opts)
	out := make([]ocr.Detection, 0, len(dets))
	for _, line := range lines {
		out = append(out, line...)
	}
	return out
}

// Texts extracts the text of each detection in order.
func Texts(dets []ocr.Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Text
	}
	return out
}
