// Package stream serves the latest captured frame as an MJPEG stream.
package stream

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/jackzampolin/sightspeech/internal/metrics"
	"github.com/jackzampolin/sightspeech/internal/state"
)

const (
	Boundary           = "frame"
	DefaultFPS         = 10
	DefaultMaxWidth    = 640
	DefaultJPEGQuality = 75
)

// Config configures the stream handler.
type Config struct {
	Store       *state.Store
	FPS         int
	MaxWidth    int
	JPEGQuality int
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Handler pushes a new JPEG part whenever the stored frame changes, at
// most FPS times a second.
type Handler struct {
	store    *state.Store
	interval time.Duration
	maxWidth int
	quality  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a stream handler.
func New(cfg Config) *Handler {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		store:    cfg.Store,
		interval: time.Second / time.Duration(cfg.FPS),
		maxWidth: cfg.MaxWidth,
		quality:  cfg.JPEGQuality,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "stream"),
	}
}

// ServeHTTP streams until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(Boundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+Boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	done := h.metrics.StreamClientConnected()
	defer done()
	h.logger.Debug("stream client connected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		if frame, seq := h.next(lastSeq); frame != nil {
			lastSeq = seq
			if err := h.writeFrame(mw, frame); err != nil {
				h.logger.Debug("stream client gone", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// next returns the stored frame when its sequence differs from lastSeq.
// The frame is only copied out of the store when it changed.
func (h *Handler) next(lastSeq uint64) (image.Image, uint64) {
	if h.store.FrameSeq() == lastSeq {
		return nil, lastSeq
	}
	frame, seq := h.store.Frame()
	if frame == nil {
		return nil, lastSeq
	}
	return frame, seq
}

func (h *Handler) writeFrame(mw *multipart.Writer, frame image.Image) error {
	jpeg, err := h.Encode(frame)
	if err != nil {
		return err
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", fmt.Sprint(len(jpeg)))
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(jpeg)
	return err
}

// Encode downsizes frame to the stream width and encodes it as JPEG.
func (h *Handler) Encode(frame image.Image) ([]byte, error) {
	img := h.downscale(frame)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(h.quality)); err != nil {
		return nil, fmt.Errorf("encode stream frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Handler) downscale(frame image.Image) image.Image {
	b := frame.Bounds()
	if b.Dx() <= h.maxWidth {
		return frame
	}
	height := b.Dy() * h.maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, h.maxWidth, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), frame, b, draw.Src, nil)
	return dst
}
