// Package pipeline runs the primary frame loop: acquire a frame, run local
// OCR on the frames the cadence selects, reconstruct reading order, correct
// the text, publish it, and act on the pending user command.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/jackzampolin/sightspeech/internal/cadence"
	"github.com/jackzampolin/sightspeech/internal/capture"
	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/focus"
	"github.com/jackzampolin/sightspeech/internal/layout"
	"github.com/jackzampolin/sightspeech/internal/lexicon"
	"github.com/jackzampolin/sightspeech/internal/metrics"
	"github.com/jackzampolin/sightspeech/internal/ocr"
	"github.com/jackzampolin/sightspeech/internal/remote"
	"github.com/jackzampolin/sightspeech/internal/state"
)

// ErrFrameAcquisition is returned by Run and Step when the source fails.
// It ends the loop.
var ErrFrameAcquisition = errors.New("frame acquisition failed")

// Submitter accepts remote commands. *remote.Dispatcher implements it.
type Submitter interface {
	Submit(cmd command.Command, frame image.Image) (string, error)
}

var _ Submitter = (*remote.Dispatcher)(nil)

// Config wires the loop's collaborators.
type Config struct {
	Source    capture.Source
	Engine    ocr.Engine
	Cadence   *cadence.Controller
	Layout    layout.Options
	Corrector *lexicon.Corrector
	Navigator *focus.Navigator
	Store     *state.Store

	// Remote is optional; without it remote commands are consumed and dropped.
	Remote Submitter

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Pipeline is the frame loop. Step and Run must be called from a single
// goroutine.
type Pipeline struct {
	source    capture.Source
	engine    ocr.Engine
	cadence   *cadence.Controller
	layout    layout.Options
	corrector *lexicon.Corrector
	navigator *focus.Navigator
	store     *state.Store
	remote    Submitter
	metrics   *metrics.Metrics
	logger    *slog.Logger

	counter uint64
}

// New validates cfg and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Engine == nil {
		cfg.Engine = ocr.Unavailable{}
	}
	if cfg.Cadence == nil {
		cfg.Cadence = cadence.New(cadence.Config{})
	}
	if cfg.Corrector == nil {
		cfg.Corrector = lexicon.NewCorrectorWithDictionary(lexicon.BuiltinDictionary(), lexicon.Config{})
	}
	if cfg.Navigator == nil {
		cfg.Navigator = focus.NewNavigator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		source:    cfg.Source,
		engine:    cfg.Engine,
		cadence:   cfg.Cadence,
		layout:    cfg.Layout,
		corrector: cfg.Corrector,
		navigator: cfg.Navigator,
		store:     cfg.Store,
		remote:    cfg.Remote,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "pipeline"),
	}, nil
}

// Run steps until ctx is cancelled or the source fails. Cancellation
// returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("frame loop started", "ocr_engine", p.engine.Name(), "skip_interval", p.cadence.Config().SkipInterval)
	defer p.logger.Info("frame loop stopped", "frames", p.counter)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step processes one frame.
func (p *Pipeline) Step(ctx context.Context) error {
	frame, err := p.source.Read(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFrameAcquisition, err)
	}
	if frame == nil {
		return fmt.Errorf("%w: %w", ErrFrameAcquisition, capture.ErrNoFrame)
	}

	counter := p.counter
	p.counter++

	p.store.SetFrame(frame)
	p.metrics.FrameRead()

	if p.cadence.ShouldProcess(counter) {
		p.ocrPass(ctx, frame, counter)
	} else {
		p.metrics.FrameSkipped()
	}

	p.handleCommand(frame)
	return nil
}

// Frames returns how many frames have been read.
func (p *Pipeline) Frames() uint64 {
	return p.counter
}

// ocrPass runs OCR on one frame and publishes the result. Failures keep
// the previous reading.
func (p *Pipeline) ocrPass(ctx context.Context, frame image.Image, counter uint64) {
	prepared, ok := p.cadence.Prepare(frame)
	if !ok {
		p.logger.Debug("skipping frame with no pixels", "frame", counter)
		p.metrics.FrameSkipped()
		return
	}

	start := time.Now()
	dets, err := p.engine.Detect(ctx, prepared.Image)
	if err != nil {
		p.metrics.OCRFailed()
		if errors.Is(err, ocr.ErrUnavailable) {
			p.logger.Debug("local ocr unavailable", "error", err)
		} else {
			p.logger.Warn("ocr pass failed", "frame", counter, "error", err)
		}
		return
	}

	ordered := layout.Reconstruct(dets, p.layout)
	if prepared.ScaleFactor != 1 {
		ordered = ocr.ScaleDetections(ordered, prepared.ScaleFactor)
	}

	texts, kept := p.corrector.CorrectIndexed(layout.Texts(ordered))
	published := make([]ocr.Detection, len(kept))
	for i, idx := range kept {
		published[i] = ordered[idx]
	}

	p.store.PublishReading(state.Reading{
		Detections: published,
		Texts:      texts,
		Frame:      counter,
		UpdatedAt:  time.Now(),
	})
	p.store.SetFocus(p.navigator.Sync(len(texts)))
	p.metrics.OCRPass(time.Since(start), len(dets), len(texts))

	p.logger.Debug("ocr pass complete",
		"frame", counter,
		"detections", len(dets),
		"words", len(texts),
		"duration", time.Since(start))
}

// handleCommand consumes the pending command, if any. A command is taken
// exactly once whether or not acting on it succeeds.
func (p *Pipeline) handleCommand(frame image.Image) {
	cmd := p.store.TakeCommand()
	if cmd == command.None {
		return
	}
	p.metrics.Command(cmd.String())

	switch cmd {
	case command.Next:
		p.store.SetFocus(p.navigator.Next())
	case command.Prev:
		p.store.SetFocus(p.navigator.Prev())
	case command.CaptureStructured, command.DescribeScene:
		if p.remote == nil {
			p.logger.Warn("remote extraction not configured, dropping command", "command", cmd)
			return
		}
		jobID, err := p.remote.Submit(cmd, frame)
		if err != nil {
			p.logger.Warn("remote command rejected", "command", cmd, "error", err)
			return
		}
		p.logger.Info("remote command dispatched", "command", cmd, "job_id", jobID)
	default:
		p.logger.Warn("unknown command dropped", "command", cmd)
	}
}
