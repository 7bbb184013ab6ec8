package endpoints

import (
	"net/http"

	"github.com/jackzampolin/sightspeech/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// VideoFeed serves the live MJPEG stream. Nil disables /video_feed.
	VideoFeed http.Handler
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Reading data endpoints
		&CommandEndpoint{},
		&WordsEndpoint{},
		&SentencesEndpoint{},
		&FocusEndpoint{},
		&VideoFeedEndpoint{Handler: cfg.VideoFeed},

		// Remote extraction and read-aloud
		&ExtractEndpoint{},
		&SpeechEndpoint{},
		&AnnouncementEndpoint{},
		&AnnouncementAudioEndpoint{},

		// Prometheus exposition
		&MetricsEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}

// DataCommands returns endpoints for reading-state operations.
func DataCommands() []api.Endpoint {
	return []api.Endpoint{
		&CommandEndpoint{},
		&WordsEndpoint{},
		&SentencesEndpoint{},
		&FocusEndpoint{},
	}
}

// SettingsCommands returns endpoints for settings operations.
// This groups settings-related commands under "settings" subcommand.
func SettingsCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},
	}
}
