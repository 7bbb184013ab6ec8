// Package speech turns read-aloud text into audio with the OpenAI speech API.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultModel = openai.SpeechModelTTS1
	defaultVoice = "alloy"
)

// ErrEmptyText is returned when there is nothing to say.
var ErrEmptyText = errors.New("text is required")

// Config holds configuration for the speech client.
type Config struct {
	APIKey       string
	Model        string  // "tts-1" (default), "tts-1-hd", "gpt-4o-mini-tts"
	Voice        string  // "alloy" (default)
	Speed        float64 // 0.25-4.0
	Instructions string  // Used by gpt-4o-mini-tts
	MaxRetries   int
	Timeout      time.Duration
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
	Logger       *slog.Logger
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	Format      string // "mp3", "wav", ...
	ContentType string
	Duration    time.Duration // time spent synthesizing
}

// Client synthesizes speech.
type Client struct {
	model        string
	voice        string
	speed        float64
	instructions string
	client       openai.Client
	logger       *slog.Logger
}

// New creates a speech client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		model:        cfg.Model,
		voice:        cfg.Voice,
		speed:        cfg.Speed,
		instructions: cfg.Instructions,
		client:       openai.NewClient(opts...),
		logger:       cfg.Logger.With("component", "speech"),
	}
}

// Synthesize converts text to audio in the given format ("" means mp3).
func (c *Client) Synthesize(ctx context.Context, text, format string) (*Audio, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	respFormat := normalizeFormat(format)
	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: respFormat,
		Speed:          openai.Float(c.speed),
	}
	if c.instructions != "" && supportsInstructions(c.model) {
		params.Instructions = openai.String(c.instructions)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading audio response: %w", err)
	}

	name := formatName(respFormat)
	audio := &Audio{
		Data:        data,
		Format:      name,
		ContentType: contentType(name),
		Duration:    time.Since(start),
	}
	c.logger.Debug("speech synthesized", "chars", len(text), "bytes", len(data), "duration", audio.Duration)
	return audio, nil
}

func supportsInstructions(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-4o-mini-tts")
}

func normalizeFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "wav":
		return openai.AudioSpeechNewParamsResponseFormatWAV
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}

func formatName(format openai.AudioSpeechNewParamsResponseFormat) string {
	switch format {
	case openai.AudioSpeechNewParamsResponseFormatOpus:
		return "opus"
	case openai.AudioSpeechNewParamsResponseFormatAAC:
		return "aac"
	case openai.AudioSpeechNewParamsResponseFormatFLAC:
		return "flac"
	case openai.AudioSpeechNewParamsResponseFormatWAV:
		return "wav"
	default:
		return "mp3"
	}
}

func contentType(format string) string {
	switch format {
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("speech api error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("speech api error (status %d)", apiErr.StatusCode)
	}
	return err
}
