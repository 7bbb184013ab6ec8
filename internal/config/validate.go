package config

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned when a setting is outside its allowed range.
var ErrInvalidValue = errors.New("invalid config value")

// Validate checks value ranges the running components depend on.
func (c *Config) Validate() error {
	checks := []struct {
		key string
		ok  bool
		msg string
	}{
		{"cadence.skip_interval", c.Cadence.SkipInterval >= 1, "must be at least 1"},
		{"cadence.target_width", c.Cadence.TargetWidth > 0, "must be positive"},
		{"remote.max_attempts", c.Remote.MaxAttempts >= 1, "must be at least 1"},
		{"remote.timeout_seconds", c.Remote.TimeoutSeconds > 0, "must be positive"},
		{"remote.jpeg_quality", c.Remote.JPEGQuality >= 1 && c.Remote.JPEGQuality <= 100, "must be between 1 and 100"},
		{"remote.requests_per_minute", c.Remote.RequestsPerMinute >= 0, "must not be negative"},
		{"stream.fps", c.Stream.FPS > 0, "must be positive"},
		{"stream.jpeg_quality", c.Stream.JPEGQuality >= 1 && c.Stream.JPEGQuality <= 100, "must be between 1 and 100"},
		{"lexicon.max_edit_distance", c.Lexicon.MaxEditDistance >= 0, "must not be negative"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s %s", ErrInvalidValue, chk.key, chk.msg)
		}
	}
	return nil
}
