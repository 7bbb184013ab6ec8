// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/sightspeech/internal/cadence"
	"github.com/jackzampolin/sightspeech/internal/config"
	"github.com/jackzampolin/sightspeech/internal/home"
	"github.com/jackzampolin/sightspeech/internal/lexicon"
	"github.com/jackzampolin/sightspeech/internal/metrics"
	"github.com/jackzampolin/sightspeech/internal/remote"
	"github.com/jackzampolin/sightspeech/internal/speech"
	"github.com/jackzampolin/sightspeech/internal/state"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
// Any field may be nil when the corresponding feature is disabled.
type Services struct {
	Store         *state.Store
	Cadence       *cadence.Controller
	Corrector     *lexicon.Corrector
	Extractor     *remote.Extractor
	Dispatcher    *remote.Dispatcher
	Speech        *speech.Client
	Announcer     *speech.Announcer
	Metrics       *metrics.Metrics
	ConfigManager *config.Manager
	Logger        *slog.Logger
	Home          *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the shared state store from context.
func StoreFrom(ctx context.Context) *state.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// CadenceFrom extracts the cadence controller from context.
func CadenceFrom(ctx context.Context) *cadence.Controller {
	if s := ServicesFrom(ctx); s != nil {
		return s.Cadence
	}
	return nil
}

// CorrectorFrom extracts the lexical corrector from context.
func CorrectorFrom(ctx context.Context) *lexicon.Corrector {
	if s := ServicesFrom(ctx); s != nil {
		return s.Corrector
	}
	return nil
}

// ExtractorFrom extracts the remote extractor from context.
func ExtractorFrom(ctx context.Context) *remote.Extractor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// DispatcherFrom extracts the remote job dispatcher from context.
func DispatcherFrom(ctx context.Context) *remote.Dispatcher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Dispatcher
	}
	return nil
}

// SpeechFrom extracts the speech client from context.
func SpeechFrom(ctx context.Context) *speech.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Speech
	}
	return nil
}

// AnnouncerFrom extracts the scene-description announcer from context.
func AnnouncerFrom(ctx context.Context) *speech.Announcer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Announcer
	}
	return nil
}

// MetricsFrom extracts the metrics collectors from context.
func MetricsFrom(ctx context.Context) *metrics.Metrics {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
