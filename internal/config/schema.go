package config

import (
	"time"

	"github.com/jackzampolin/sightspeech/internal/cadence"
	"github.com/jackzampolin/sightspeech/internal/layout"
	"github.com/jackzampolin/sightspeech/internal/lexicon"
	"github.com/jackzampolin/sightspeech/internal/remote"
)

// Config holds sightspeech configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Camera  CameraConfig  `mapstructure:"camera" yaml:"camera"`
	Cadence CadenceConfig `mapstructure:"cadence" yaml:"cadence"`
	Layout  LayoutConfig  `mapstructure:"layout" yaml:"layout"`
	Lexicon LexiconConfig `mapstructure:"lexicon" yaml:"lexicon"`
	OCR     OCRConfig     `mapstructure:"ocr" yaml:"ocr"`
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Speech  SpeechConfig  `mapstructure:"speech" yaml:"speech"`
	Stream  StreamConfig  `mapstructure:"stream" yaml:"stream"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// CameraConfig selects the frame source.
type CameraConfig struct {
	Source     string `mapstructure:"source" yaml:"source"`           // "camera" or "dir"
	Device     int    `mapstructure:"device" yaml:"device"`           // video device index
	Width      int    `mapstructure:"width" yaml:"width"`             // requested capture width, 0 for device default
	Height     int    `mapstructure:"height" yaml:"height"`           // requested capture height
	Path       string `mapstructure:"path" yaml:"path"`               // frame directory for source "dir"
	IntervalMS int    `mapstructure:"interval_ms" yaml:"interval_ms"` // replay pacing for source "dir"
	Loop       bool   `mapstructure:"loop" yaml:"loop"`               // replay forever
}

// CadenceConfig controls how often local OCR runs.
type CadenceConfig struct {
	SkipInterval int `mapstructure:"skip_interval" yaml:"skip_interval"`
	TargetWidth  int `mapstructure:"target_width" yaml:"target_width"`
}

// LayoutConfig tunes line reconstruction.
type LayoutConfig struct {
	Tolerance    string  `mapstructure:"tolerance" yaml:"tolerance"` // "first" or "median"
	MinTolerance float64 `mapstructure:"min_tolerance" yaml:"min_tolerance"`
	HeightRatio  float64 `mapstructure:"height_ratio" yaml:"height_ratio"`
}

// LexiconConfig locates the frequency dictionary.
type LexiconConfig struct {
	DictionaryPath   string `mapstructure:"dictionary_path" yaml:"dictionary_path"`
	MaxEditDistance  int    `mapstructure:"max_edit_distance" yaml:"max_edit_distance"`
	MaxSegmentLength int    `mapstructure:"max_segment_length" yaml:"max_segment_length"`
	Watch            bool   `mapstructure:"watch" yaml:"watch"` // reload the file when it changes
}

// OCRConfig selects the local OCR engine.
type OCRConfig struct {
	Engine        string   `mapstructure:"engine" yaml:"engine"` // "tesseract" or "none"
	Languages     []string `mapstructure:"languages" yaml:"languages"`
	MinConfidence float64  `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// RemoteConfig configures the remote extraction service.
type RemoteConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	Provider          string  `mapstructure:"provider" yaml:"provider"` // "gemini" or "openrouter"
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxAttempts       int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelayMS       int     `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	Multiplier        float64 `mapstructure:"multiplier" yaml:"multiplier"`
	JPEGQuality       int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 0 disables the limit
	StructuredRequest string  `mapstructure:"structured_directive" yaml:"structured_directive"`
	DescribeDirective string  `mapstructure:"describe_directive" yaml:"describe_directive"`
}

// SpeechConfig configures read-aloud synthesis.
type SpeechConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model   string `mapstructure:"model" yaml:"model"`
	Voice   string `mapstructure:"voice" yaml:"voice"`
}

// StreamConfig tunes the MJPEG preview.
type StreamConfig struct {
	FPS         int `mapstructure:"fps" yaml:"fps"`
	MaxWidth    int `mapstructure:"max_width" yaml:"max_width"`
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Source:     "camera",
			Device:     0,
			IntervalMS: 100,
		},
		Cadence: CadenceConfig{
			SkipInterval: cadence.DefaultSkipInterval,
			TargetWidth:  cadence.DefaultTargetWidth,
		},
		Layout: LayoutConfig{
			Tolerance:    "first",
			MinTolerance: 10,
			HeightRatio:  0.5,
		},
		Lexicon: LexiconConfig{
			DictionaryPath:   "frequency_dictionary_en_82_765.txt",
			MaxEditDistance:  lexicon.DefaultMaxEditDistance,
			MaxSegmentLength: lexicon.DefaultMaxSegmentLength,
			Watch:            true,
		},
		OCR: OCRConfig{
			Engine:        "tesseract",
			Languages:     []string{"eng"},
			MinConfidence: 0.3,
		},
		Remote: RemoteConfig{
			Enabled:           true,
			Provider:          remote.GeminiName,
			Model:             "gemini-2.5-flash",
			APIKey:            "${GEMINI_API_KEY}",
			TimeoutSeconds:    20,
			MaxAttempts:       3,
			BaseDelayMS:       1000,
			Multiplier:        2,
			JPEGQuality:       remote.DefaultJPEGQuality,
			RequestsPerMinute: 30,
			StructuredRequest: remote.DefaultCaptureRequest,
			DescribeDirective: remote.DefaultDescribeDirective,
		},
		Speech: SpeechConfig{
			Enabled: false,
			APIKey:  "${OPENAI_API_KEY}",
			Model:   "tts-1",
			Voice:   "alloy",
		},
		Stream: StreamConfig{
			FPS:         10,
			MaxWidth:    640,
			JPEGQuality: 75,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "5000",
		},
	}
}

// Controller converts to the cadence controller configuration.
func (c CadenceConfig) Controller() cadence.Config {
	return cadence.Config{SkipInterval: c.SkipInterval, TargetWidth: c.TargetWidth}
}

// Options converts to layout options.
func (c LayoutConfig) Options() layout.Options {
	opts := layout.DefaultOptions()
	opts.Tolerance = layout.ParseTolerancePolicy(c.Tolerance)
	if c.MinTolerance > 0 {
		opts.MinTolerance = c.MinTolerance
	}
	if c.HeightRatio > 0 {
		opts.HeightRatio = c.HeightRatio
	}
	return opts
}

// ResolvedAPIKey returns the API key with ${ENV_VAR} references expanded.
func (c RemoteConfig) ResolvedAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}

// CodecConfig converts to the remote codec configuration.
// It resolves ${ENV_VAR} references in the API key.
func (c RemoteConfig) CodecConfig() remote.CodecConfig {
	return remote.CodecConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.ResolvedAPIKey(),
		Model:   c.Model,
	}
}

// Policy converts to the remote retry policy.
func (c RemoteConfig) Policy() remote.Policy {
	p := remote.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(c.BaseDelayMS) * time.Millisecond
	}
	if c.Multiplier >= 1 {
		p.Multiplier = c.Multiplier
	}
	return p
}

// Timeout returns the per-attempt timeout.
func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return remote.DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolvedAPIKey returns the API key with ${ENV_VAR} references expanded.
func (c SpeechConfig) ResolvedAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}
