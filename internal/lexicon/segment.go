package lexicon

import (
	"math"
	"strings"
	"unicode"
)

// DefaultMaxSegmentLength bounds the length of a single segmented word.
const DefaultMaxSegmentLength = 25

// Segmentation is the most likely split of a phrase into dictionary words.
type Segmentation struct {
	Segmented string  // input with spaces inserted
	Corrected string  // spelling-corrected words joined by spaces
	Distance  int     // total edits including inserted spaces
	LogProb   float64 // sum of log10 word probabilities
}

// Segment inserts spaces into phrase and corrects each resulting word,
// choosing the split with the lowest edit distance and, among equals, the
// highest combined word probability. Words unknown to the dictionary are
// kept as-is and penalized by their length.
//
// Candidate prefixes are kept in a circular buffer of maxSegLen entries,
// so the pass is linear in len(phrase).
func (d *Dictionary) Segment(phrase string, maxDist, maxSegLen int) Segmentation {
	if maxSegLen <= 0 {
		maxSegLen = DefaultMaxSegmentLength
	}
	n := len(phrase)
	if n == 0 {
		return Segmentation{}
	}
	total := d.total
	if total <= 0 {
		total = 1
	}

	size := min(maxSegLen, n)
	comps := make([]Segmentation, size)
	idx := -1

	for j := 0; j < n; j++ {
		imax := min(n-j, maxSegLen)
		for i := 1; i <= imax; i++ {
			part := phrase[j : j+i]
			sepLen := 0
			topEd := 0

			if unicode.IsSpace(rune(part[0])) {
				part = part[1:]
			} else {
				sepLen = 1
			}
			topEd += len(part)
			part = strings.ReplaceAll(part, " ", "")
			topEd -= len(part)

			var topResult string
			var topLogProb float64
			if s, ok := d.Lookup(strings.ToLower(part), maxDist); ok {
				topResult = s.Term
				topEd += s.Distance
				topLogProb = math.Log10(float64(s.Count) / total)
			} else {
				topResult = part
				topEd += len(part)
				topLogProb = math.Log10(10.0 / total / math.Pow(10, float64(len(part))))
			}

			dest := (i + idx) % size
			if j == 0 {
				comps[dest] = Segmentation{
					Segmented: part,
					Corrected: topResult,
					Distance:  topEd,
					LogProb:   topLogProb,
				}
				continue
			}

			prev := comps[idx]
			cur := comps[dest]
			sameDistance := prev.Distance+topEd == cur.Distance || prev.Distance+sepLen+topEd == cur.Distance
			if i == maxSegLen ||
				(sameDistance && cur.LogProb < prev.LogProb+topLogProb) ||
				prev.Distance+sepLen+topEd < cur.Distance {
				comps[dest] = Segmentation{
					Segmented: prev.Segmented + " " + part,
					Corrected: prev.Corrected + " " + topResult,
					Distance:  prev.Distance + sepLen + topEd,
					LogProb:   prev.LogProb + topLogProb,
				}
			}
		}
		idx = (idx + 1) % size
	}
	return comps[idx]
}
