package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry represents a single configuration entry.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries returns every known config key with its default value.
// The manager registers these as viper defaults so each key can also be
// set from the environment.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Frame source
		// ===================
		{Key: "camera.source", Value: d.Camera.Source, Description: `Frame source: "camera" or "dir"`},
		{Key: "camera.device", Value: d.Camera.Device, Description: "Video device index"},
		{Key: "camera.width", Value: d.Camera.Width, Description: "Requested capture width (0 keeps the device default)"},
		{Key: "camera.height", Value: d.Camera.Height, Description: "Requested capture height (0 keeps the device default)"},
		{Key: "camera.path", Value: d.Camera.Path, Description: `Frame directory when source is "dir"`},
		{Key: "camera.interval_ms", Value: d.Camera.IntervalMS, Description: "Pause between replayed frames in milliseconds"},
		{Key: "camera.loop", Value: d.Camera.Loop, Description: "Restart the replay directory when exhausted"},

		// ===================
		// Local OCR
		// ===================
		{Key: "cadence.skip_interval", Value: d.Cadence.SkipInterval, Description: "Run local OCR on every Nth frame"},
		{Key: "cadence.target_width", Value: d.Cadence.TargetWidth, Description: "Frames wider than this are downscaled before OCR"},
		{Key: "ocr.engine", Value: d.OCR.Engine, Description: `Local OCR engine: "tesseract" or "none"`},
		{Key: "ocr.languages", Value: d.OCR.Languages, Description: "Tesseract language codes"},
		{Key: "ocr.min_confidence", Value: d.OCR.MinConfidence, Description: "Drop words below this confidence (0-1)"},
		{Key: "layout.tolerance", Value: d.Layout.Tolerance, Description: `Line tolerance policy: "first" or "median" detection height`},
		{Key: "layout.min_tolerance", Value: d.Layout.MinTolerance, Description: "Lower bound on line tolerance in pixels"},
		{Key: "layout.height_ratio", Value: d.Layout.HeightRatio, Description: "Tolerance as a fraction of the reference height"},

		// ===================
		// Lexicon
		// ===================
		{Key: "lexicon.dictionary_path", Value: d.Lexicon.DictionaryPath, Description: "Word frequency file (word<space>count); relative paths resolve against the home directory"},
		{Key: "lexicon.max_edit_distance", Value: d.Lexicon.MaxEditDistance, Description: "Maximum edit distance for corrections"},
		{Key: "lexicon.max_segment_length", Value: d.Lexicon.MaxSegmentLength, Description: "Maximum word length considered during segmentation"},
		{Key: "lexicon.watch", Value: d.Lexicon.Watch, Description: "Reload the dictionary when the file changes"},

		// ===================
		// Remote extraction
		// ===================
		{Key: "remote.enabled", Value: d.Remote.Enabled, Description: "Enable capture and describe commands"},
		{Key: "remote.provider", Value: d.Remote.Provider, Description: `Remote provider: "gemini" or "openrouter"`},
		{Key: "remote.base_url", Value: d.Remote.BaseURL, Description: "Override the provider API base URL"},
		{Key: "remote.model", Value: d.Remote.Model, Description: "Remote model name"},
		{Key: "remote.api_key", Value: d.Remote.APIKey, Description: "Remote API key (uses environment variable)"},
		{Key: "remote.timeout_seconds", Value: d.Remote.TimeoutSeconds, Description: "Per-attempt HTTP timeout in seconds"},
		{Key: "remote.max_attempts", Value: d.Remote.MaxAttempts, Description: "Total attempts for server errors, including the first"},
		{Key: "remote.base_delay_ms", Value: d.Remote.BaseDelayMS, Description: "Delay before the first retry in milliseconds"},
		{Key: "remote.multiplier", Value: d.Remote.Multiplier, Description: "Backoff growth factor"},
		{Key: "remote.jpeg_quality", Value: d.Remote.JPEGQuality, Description: "JPEG quality of uploaded frames"},
		{Key: "remote.requests_per_minute", Value: d.Remote.RequestsPerMinute, Description: "Remote request budget per minute, 0 for unlimited"},
		{Key: "remote.structured_directive", Value: d.Remote.StructuredRequest, Description: "User request sent with the capture command"},
		{Key: "remote.describe_directive", Value: d.Remote.DescribeDirective, Description: "Prompt sent with the describe command"},

		// ===================
		// Speech
		// ===================
		{Key: "speech.enabled", Value: d.Speech.Enabled, Description: "Enable read-aloud synthesis"},
		{Key: "speech.api_key", Value: d.Speech.APIKey, Description: "OpenAI API key (uses environment variable)"},
		{Key: "speech.model", Value: d.Speech.Model, Description: "OpenAI speech model"},
		{Key: "speech.voice", Value: d.Speech.Voice, Description: "OpenAI speech voice"},

		// ===================
		// Preview stream and server
		// ===================
		{Key: "stream.fps", Value: d.Stream.FPS, Description: "Maximum preview frames per second"},
		{Key: "stream.max_width", Value: d.Stream.MaxWidth, Description: "Preview frames wider than this are downscaled"},
		{Key: "stream.jpeg_quality", Value: d.Stream.JPEGQuality, Description: "Preview JPEG quality"},
		{Key: "server.host", Value: d.Server.Host, Description: "HTTP listen host"},
		{Key: "server.port", Value: d.Server.Port, Description: "HTTP listen port"},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// isSecretKey reports whether values under key must not be echoed back.
func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// maskSecret hides literal secrets but keeps ${ENV_VAR} references readable.
func maskSecret(value any) any {
	s, ok := value.(string)
	if !ok || s == "" {
		return value
	}
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return s
	}
	return "********"
}
