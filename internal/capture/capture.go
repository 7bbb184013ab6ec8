// Package capture supplies raw frames to the pipeline.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// ErrNoFrame is returned when a source has no frame to give, for example
// a camera that stopped delivering or a replay directory that ran out.
var ErrNoFrame = errors.New("no frame available")

// Source is a frame producer. Read blocks until the next frame is ready.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// DirConfig configures a directory replay source.
type DirConfig struct {
	Path     string
	Interval time.Duration // pause between frames, 0 for none
	Loop     bool          // restart at the first file when exhausted
	Logger   *slog.Logger
}

// DirSource replays the images in a directory in name order.
type DirSource struct {
	files    []string
	interval time.Duration
	loop     bool
	next     int
	last     time.Time
	logger   *slog.Logger
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true}

// NewDirSource lists the image files under cfg.Path.
func NewDirSource(cfg DirConfig) (*DirSource, error) {
	entries, err := os.ReadDir(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(cfg.Path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", cfg.Path)
	}
	sort.Strings(files)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{
		files:    files,
		interval: cfg.Interval,
		loop:     cfg.Loop,
		logger:   logger.With("component", "capture", "source", "dir"),
	}, nil
}

// Len returns the number of frames in one pass.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Read decodes the next file. It returns ErrNoFrame when the directory is
// exhausted and looping is off.
func (s *DirSource) Read(ctx context.Context) (image.Image, error) {
	if s.next >= len(s.files) {
		if !s.loop {
			return nil, ErrNoFrame
		}
		s.next = 0
	}

	if s.interval > 0 && !s.last.IsZero() {
		wait := s.interval - time.Since(s.last)
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}

	path := s.files[s.next]
	s.next++
	s.last = time.Now()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Close is a no-op.
func (s *DirSource) Close() error {
	return nil
}
