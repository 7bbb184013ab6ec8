package remote

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/state"
)

// AnnounceFunc receives freeform descriptions for immediate read-aloud.
type AnnounceFunc func(ctx context.Context, text string)

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	Client *Client
	Store  *state.Store

	// CaptureRequest is the user request wrapped into the structured
	// directive. Defaults to DefaultCaptureRequest.
	CaptureRequest string

	// DescribeDirective is the freeform prompt. Defaults to DefaultDescribeDirective.
	DescribeDirective string

	// Announce is optional.
	Announce AnnounceFunc

	Logger *slog.Logger
}

// Extractor maps remote commands to extraction calls and applies the results.
// It is the only writer of the store's remote words.
type Extractor struct {
	client            *Client
	store             *state.Store
	captureRequest    string
	describeDirective string
	announce          AnnounceFunc
	logger            *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if cfg.Client == nil {
		return nil, errors.New("remote client is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.CaptureRequest == "" {
		cfg.CaptureRequest = DefaultCaptureRequest
	}
	if cfg.DescribeDirective == "" {
		cfg.DescribeDirective = DefaultDescribeDirective
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:            cfg.Client,
		store:             cfg.Store,
		captureRequest:    cfg.CaptureRequest,
		describeDirective: cfg.DescribeDirective,
		announce:          cfg.Announce,
		logger:            cfg.Logger.With("component", "extractor"),
	}, nil
}

// Client returns the underlying client.
func (e *Extractor) Client() *Client {
	return e.client
}

// Run performs the extraction for cmd on frame.
//
// CaptureStructured replaces the remote words wholesale on success.
// DescribeScene logs the description and hands it to the announce hook;
// it never touches the store. On failure the store is left unchanged.
func (e *Extractor) Run(ctx context.Context, frame image.Image, cmd command.Command) error {
	switch cmd {
	case command.CaptureStructured:
		res, err := e.client.Extract(ctx, frame, StructuredDirective(e.captureRequest), TextChunks())
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		e.store.SetRemoteWords(res.Words)
		e.logger.Info("remote words updated", "request_id", res.RequestID, "count", len(res.Words))
		return nil

	case command.DescribeScene:
		res, err := e.client.Extract(ctx, frame, e.describeDirective, Freeform{})
		if err != nil {
			return fmt.Errorf("describe: %w", err)
		}
		e.logger.Info("scene description", "request_id", res.RequestID, "description", res.Text)
		if e.announce != nil && res.Text != "" {
			e.announce(ctx, res.Text)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s is not a remote command", command.ErrInvalidCommand, cmd)
	}
}

// ExtractWords runs a one-off structured extraction for an uploaded image
// without touching the store.
func (e *Extractor) ExtractWords(ctx context.Context, img image.Image, request string) ([]string, error) {
	if request == "" {
		request = e.captureRequest
	}
	res, err := e.client.Extract(ctx, img, StructuredDirective(request), TextChunks())
	if err != nil {
		return nil, err
	}
	return res.Words, nil
}
