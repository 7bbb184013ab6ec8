// Package camera reads frames from a local video device through OpenCV.
package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/jackzampolin/sightspeech/internal/capture"
)

// Config selects the device.
type Config struct {
	Device int // video device index, 0 is the default webcam
	Width  int // requested capture width, 0 keeps the device default
	Height int
	Logger *slog.Logger
}

// Source is a capture.Source backed by gocv.VideoCapture.
type Source struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	logger *slog.Logger
}

var _ capture.Source = (*Source)(nil)

// Open opens the device.
func Open(cfg Config) (*Source, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(cfg.Device, gocv.VideoCaptureAny)
	if err != nil {
		return nil, fmt.Errorf("open video device %d: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video device %d did not open", cfg.Device)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "capture", "source", "camera", "device", cfg.Device)
	logger.Info("camera opened",
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))

	return &Source{vc: vc, mat: gocv.NewMat(), logger: logger}, nil
}

// Read grabs the next frame. A failed grab or an empty frame returns
// capture.ErrNoFrame.
func (s *Source) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil, capture.ErrNoFrame
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, capture.ErrNoFrame
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil
	}
	s.mat.Close()
	err := s.vc.Close()
	s.vc = nil
	return err
}
