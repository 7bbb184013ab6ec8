// Package lexicon corrects noisy OCR fragments using a word-frequency
// dictionary with symmetric-delete lookup and word segmentation.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrDictionaryUnavailable is returned when a dictionary file cannot be
// loaded. Callers degrade to BuiltinDictionary.
var ErrDictionaryUnavailable = errors.New("dictionary unavailable")

const (
	// DefaultMaxEditDistance is the largest edit distance the delete index supports.
	DefaultMaxEditDistance = 2
	// prefixLength bounds how much of each word is expanded into deletes.
	prefixLength = 7
)

// Suggestion is a dictionary match for a looked-up term.
type Suggestion struct {
	Term     string
	Distance int
	Count    int64
}

// Dictionary is an immutable word-frequency table with a delete index.
// It is safe for concurrent reads.
type Dictionary struct {
	counts          map[string]int64
	deletes         map[string][]string
	total           float64
	maxLen          int
	maxEditDistance int
}

// NewDictionary builds a dictionary from word counts. Words are lower-cased;
// non-positive counts are ignored.
func NewDictionary(counts map[string]int64, maxEditDistance int) *Dictionary {
	if maxEditDistance <= 0 {
		maxEditDistance = DefaultMaxEditDistance
	}
	d := &Dictionary{
		counts:          make(map[string]int64, len(counts)),
		deletes:         make(map[string][]string),
		maxEditDistance: maxEditDistance,
	}
	for w, c := range counts {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || c <= 0 {
			continue
		}
		d.counts[w] += c
	}
	for w, c := range d.counts {
		d.total += float64(c)
		if len(w) > d.maxLen {
			d.maxLen = len(w)
		}
		key := w
		if len(key) > prefixLength {
			key = key[:prefixLength]
		}
		d.deletes[key] = append(d.deletes[key], w)
		for del := range edits(key, maxEditDistance) {
			d.deletes[del] = append(d.deletes[del], w)
		}
	}
	return d
}

// ReadDictionary parses "word count" lines. Blank and malformed lines are
// skipped.
func ReadDictionary(r io.Reader, maxEditDistance int) (*Dictionary, error) {
	counts := make(map[string]int64)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		counts[fields[0]] += n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrDictionaryUnavailable)
	}
	return NewDictionary(counts, maxEditDistance), nil
}

// LoadDictionary reads a frequency file from disk.
func LoadDictionary(path string, maxEditDistance int) (*Dictionary, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrDictionaryUnavailable)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)
	}
	defer f.Close()

	d, err := ReadDictionary(f, maxEditDistance)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.counts)
}

// Count returns the frequency of word, or 0.
func (d *Dictionary) Count(word string) int64 {
	return d.counts[word]
}

// Lookup returns the closest dictionary word to term within maxDist edits.
// Ties on distance go to the more frequent word. term must be lower-case.
func (d *Dictionary) Lookup(term string, maxDist int) (Suggestion, bool) {
	if term == "" {
		return Suggestion{}, false
	}
	if maxDist > d.maxEditDistance {
		maxDist = d.maxEditDistance
	}
	if c, ok := d.counts[term]; ok {
		return Suggestion{Term: term, Distance: 0, Count: c}, true
	}
	if maxDist <= 0 || len(term)-maxDist > d.maxLen {
		return Suggestion{}, false
	}

	prefix := term
	if len(prefix) > prefixLength {
		prefix = prefix[:prefixLength]
	}

	best := Suggestion{Distance: maxDist + 1}
	bound := maxDist
	checked := make(map[string]struct{})
	seen := map[string]struct{}{prefix: {}}
	queue := []string{prefix}

	for i := 0; i < len(queue); i++ {
		cand := queue[i]
		lenDiff := len(prefix) - len(cand)
		if lenDiff > bound {
			break
		}

		for _, word := range d.deletes[cand] {
			if word == term {
				continue
			}
			if abs(len(word)-len(term)) > bound {
				continue
			}
			if _, ok := checked[word]; ok {
				continue
			}
			checked[word] = struct{}{}

			dist := levenshtein.ComputeDistance(term, word)
			if dist > bound {
				continue
			}
			count := d.counts[word]
			if dist < best.Distance || (dist == best.Distance && count > best.Count) {
				best = Suggestion{Term: word, Distance: dist, Count: count}
				bound = dist
			}
		}

		if lenDiff < maxDist && len(cand) <= prefixLength {
			for j := 0; j < len(cand); j++ {
				del := cand[:j] + cand[j+1:]
				if _, ok := seen[del]; ok {
					continue
				}
				seen[del] = struct{}{}
				queue = append(queue, del)
			}
		}
	}

	if best.Term == "" {
		return Suggestion{}, false
	}
	return best, true
}

// edits returns every string reachable from word by deleting up to
// maxDist characters, excluding word itself.
func edits(word string, maxDist int) map[string]struct{} {
	out := make(map[string]struct{})
	var walk func(w string, depth int)
	walk = func(w string, depth int) {
		if depth >= maxDist || len(w) <= 1 {
			return
		}
		for i := 0; i < len(w); i++ {
			del := w[:i] + w[i+1:]
			if _, ok := out[del]; ok {
				continue
			}
			out[del] = struct{}{}
			walk(del, depth+1)
		}
	}
	walk(word, 0)
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
