// Package remote sends a frame and a task directive to a multimodal
// extraction service, in either structured or freeform mode, under a
// bounded retry policy.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/jackzampolin/sightspeech/internal/metrics"
)

const (
	DefaultTimeout     = 20 * time.Second
	DefaultJPEGQuality = 90
)

// Config holds client configuration.
type Config struct {
	Codec       Codec
	Policy      Policy
	Timeout     time.Duration // per attempt
	JPEGQuality int
	Limiter     *RateLimiter // Optional, nil for unlimited
	HTTPClient  *http.Client // Optional (tests)
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Result is a successful extraction.
type Result struct {
	RequestID string
	Words     []string // structured mode
	Text      string   // freeform mode
	Attempts  int
	Duration  time.Duration
}

// Client performs remote extraction calls.
type Client struct {
	codec       Codec
	policy      Policy
	jpegQuality int
	limiter     *RateLimiter
	httpClient  *http.Client
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewClient creates a client. Codec is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Codec == nil {
		return nil, errors.New("remote codec is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		codec:       cfg.Codec,
		policy:      cfg.Policy.normalized(),
		jpegQuality: cfg.JPEGQuality,
		limiter:     cfg.Limiter,
		httpClient:  httpClient,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With("component", "remote", "provider", cfg.Codec.Name()),
	}, nil
}

// Provider returns the codec name.
func (c *Client) Provider() string {
	return c.codec.Name()
}

// Extract encodes img as JPEG and runs one extraction call.
func (c *Client) Extract(ctx context.Context, img image.Image, directive string, mode Mode) (*Result, error) {
	if img == nil {
		return nil, errors.New("image is required")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return c.ExtractJPEG(ctx, buf.Bytes(), directive, mode)
}

// ExtractJPEG runs one extraction call on an already-encoded JPEG.
// 5xx responses and transport failures are retried per the policy; any
// other failure returns immediately.
func (c *Client) ExtractJPEG(ctx context.Context, jpeg []byte, directive string, mode Mode) (*Result, error) {
	if mode == nil {
		return nil, errors.New("mode is required")
	}
	req := Request{
		ID:        uuid.New().String(),
		Directive: directive,
		ImageJPEG: jpeg,
		Mode:      mode,
	}
	modeName := ModeName(mode)
	logger := c.logger.With("request_id", req.ID, "mode", modeName)

	policy := c.policy
	policy.OnRetry = func(attempt uint, err error) {
		c.metrics.RemoteRetry(modeName)
		logger.Warn("remote attempt failed", "attempt", attempt+1, "error", err)
	}

	start := time.Now()
	attempts := 0
	text, err := Do(ctx, policy, func() (string, error) {
		attempts++
		return c.attempt(ctx, req)
	})
	if err == nil {
		var res *Result
		res, err = c.finish(req, text)
		if err == nil {
			res.Attempts = attempts
			res.Duration = time.Since(start)
			c.metrics.RemoteCall(modeName, metrics.OutcomeSuccess, res.Duration)
			logger.Info("remote extraction complete", "attempts", attempts, "duration", res.Duration)
			return res, nil
		}
	}

	c.metrics.RemoteCall(modeName, outcome(err), time.Since(start))
	logger.Error("remote extraction failed", "attempts", attempts, "error", err)
	return nil, err
}

func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	httpReq, err := c.codec.NewHTTPRequest(ctx, req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &transportError{err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", &transportError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Drain()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return c.codec.DecodeText(body)
}

func (c *Client) finish(req Request, text string) (*Result, error) {
	res := &Result{RequestID: req.ID}
	switch m := req.Mode.(type) {
	case Structured:
		words, err := decodeWords(text, m.Schema)
		if err != nil {
			return nil, err
		}
		res.Words = words
	case Freeform:
		res.Text = strings.TrimSpace(text)
	default:
		return nil, fmt.Errorf("unsupported mode %T", req.Mode)
	}
	return res, nil
}

// ModeName returns "structured" or "freeform".
func ModeName(m Mode) string {
	switch m.(type) {
	case Structured:
		return "structured"
	case Freeform:
		return "freeform"
	default:
		return "unknown"
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformed
	case errors.Is(err, ErrTransient):
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomePermanent
	}
}
