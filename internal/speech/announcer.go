package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Announcement is the latest scene description handed to the announcer.
type Announcement struct {
	ID        uint64    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	HasAudio  bool      `json:"has_audio"`
}

// Announcer keeps the most recent announcement so a reader client can
// fetch and play it. Only the latest one is kept. With a nil Client the
// text is kept without audio and the client reads it with its own voice.
type Announcer struct {
	client *Client
	logger *slog.Logger

	mu     sync.RWMutex
	latest Announcement
	audio  *Audio
}

// NewAnnouncer creates an announcer. client may be nil.
func NewAnnouncer(client *Client, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		client: client,
		logger: logger.With("component", "announcer"),
	}
}

// Announce records text as the latest announcement and, with a speech
// client, synthesizes its audio. Empty text is ignored.
func (a *Announcer) Announce(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	id := a.latest.ID + 1
	a.latest = Announcement{ID: id, Text: text, CreatedAt: time.Now()}
	a.audio = nil
	a.mu.Unlock()
	a.logger.Info("announcement ready", "id", id, "chars", len(text))

	if a.client == nil {
		return
	}
	audio, err := a.client.Synthesize(ctx, text, "")
	if err != nil {
		a.logger.Warn("announcement synthesis failed", "id", id, "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// A newer announcement replaced this one while synthesizing.
	if a.latest.ID != id {
		return
	}
	a.audio = audio
	a.latest.HasAudio = true
}

// Latest returns the most recent announcement, false before the first.
func (a *Announcer) Latest() (Announcement, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.latest.ID != 0
}

// Audio returns the audio of the latest announcement, false when there is
// none yet.
func (a *Announcer) Audio() (*Audio, Announcement, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.audio, a.latest, a.audio != nil
}
