package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
)

// Config configures a Corrector.
type Config struct {
	DictionaryPath   string
	MaxEditDistance  int // default 2
	MaxSegmentLength int // default 25
	Logger           *slog.Logger
}

// Corrector cleans, segments and spell-corrects OCR fragments.
// The active dictionary is swapped atomically on reload.
type Corrector struct {
	cfg      Config
	dict     atomic.Pointer[Dictionary]
	degraded atomic.Bool
	logger   *slog.Logger
}

// NewCorrector loads the configured dictionary. A load failure is logged
// and the corrector runs on BuiltinDictionary instead.
func NewCorrector(cfg Config) *Corrector {
	if cfg.MaxEditDistance <= 0 {
		cfg.MaxEditDistance = DefaultMaxEditDistance
	}
	if cfg.MaxSegmentLength <= 0 {
		cfg.MaxSegmentLength = DefaultMaxSegmentLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Corrector{cfg: cfg, logger: cfg.Logger.With("component", "lexicon")}
	if err := c.Reload(); err != nil {
		c.logger.Warn("dictionary unavailable, using built-in table", "error", err)
		c.dict.Store(BuiltinDictionary())
		c.degraded.Store(true)
	}
	return c
}

// NewCorrectorWithDictionary returns a corrector over an already-built dictionary.
func NewCorrectorWithDictionary(d *Dictionary, cfg Config) *Corrector {
	if cfg.MaxEditDistance <= 0 {
		cfg.MaxEditDistance = DefaultMaxEditDistance
	}
	if cfg.MaxSegmentLength <= 0 {
		cfg.MaxSegmentLength = DefaultMaxSegmentLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Corrector{cfg: cfg, logger: cfg.Logger.With("component", "lexicon")}
	c.dict.Store(d)
	return c
}

// Reload re-reads the dictionary file. On failure the current dictionary
// stays active.
func (c *Corrector) Reload() error {
	d, err := LoadDictionary(c.cfg.DictionaryPath, c.cfg.MaxEditDistance)
	if err != nil {
		return err
	}
	c.dict.Store(d)
	c.degraded.Store(false)
	c.logger.Info("dictionary loaded", "path", c.cfg.DictionaryPath, "words", d.Len())
	return nil
}

// Degraded reports whether the built-in fallback table is in use.
func (c *Corrector) Degraded() bool {
	return c.degraded.Load()
}

// Dictionary returns the active dictionary.
func (c *Corrector) Dictionary() *Dictionary {
	return c.dict.Load()
}

// Correct returns the corrected form of every fragment that survives
// cleaning, in input order. Fragments with no letters or digits are dropped.
func (c *Corrector) Correct(raw []string) []string {
	out, _ := c.CorrectIndexed(raw)
	return out
}

// CorrectIndexed is Correct plus the input index of each surviving entry,
// so callers can keep corrected text paired with its detection.
func (c *Corrector) CorrectIndexed(raw []string) ([]string, []int) {
	d := c.dict.Load()
	out := make([]string, 0, len(raw))
	idx := make([]int, 0, len(raw))
	for i, s := range raw {
		cleaned := Clean(s)
		if cleaned == "" {
			continue
		}
		seg := d.Segment(cleaned, c.cfg.MaxEditDistance, c.cfg.MaxSegmentLength)
		if seg.Corrected == "" {
			continue
		}
		out = append(out, capitalize(seg.Corrected))
		idx = append(idx, i)
	}
	return out, idx
}

// Watch reloads the dictionary whenever its file is written or replaced.
// It blocks until ctx is cancelled.
func (c *Corrector) Watch(ctx context.Context) error {
	if c.cfg.DictionaryPath == "" {
		return fmt.Errorf("%w: no path configured", ErrDictionaryUnavailable)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen.
	target := filepath.Clean(c.cfg.DictionaryPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := c.Reload(); err != nil {
				c.logger.Warn("dictionary reload failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				_ = c.Reload()
				continue
			}
			c.logger.Warn("dictionary watcher error", "error", err)
		}
	}
}

// Clean keeps ASCII letters and digits and lower-cases them.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteByte(ch)
		case ch >= 'A' && ch <= 'Z':
			b.WriteByte(ch + ('a' - 'A'))
		}
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
