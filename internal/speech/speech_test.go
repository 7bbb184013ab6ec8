package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesizeSuccess(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := New(Config{APIKey: "test-key", Voice: "nova", BaseURL: server.URL})

	audio, err := client.Synthesize(context.Background(), "  Platform two.  ", "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio.Data) != "mp3-bytes" {
		t.Fatalf("unexpected audio bytes: %q", string(audio.Data))
	}
	if audio.Format != "mp3" || audio.ContentType != "audio/mpeg" {
		t.Fatalf("format = %s (%s)", audio.Format, audio.ContentType)
	}
	if payload["input"] != "Platform two." {
		t.Fatalf("input = %v", payload["input"])
	}
	if payload["voice"] != "nova" || payload["model"] != "tts-1" {
		t.Fatalf("voice/model = %v/%v", payload["voice"], payload["model"])
	}
	if _, ok := payload["instructions"]; ok {
		t.Fatal("tts-1 does not take instructions")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	client := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Synthesize(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestSynthesizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 1})
	_, err := client.Synthesize(context.Background(), "hello", "wav")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestAnnouncerWithoutClientKeepsText(t *testing.T) {
	a := NewAnnouncer(nil, nil)
	if _, ok := a.Latest(); ok {
		t.Fatal("expected no announcement before Announce")
	}

	a.Announce(context.Background(), "   ")
	if _, ok := a.Latest(); ok {
		t.Fatal("blank text should be ignored")
	}

	a.Announce(context.Background(), " A red door on the left. ")
	got, ok := a.Latest()
	if !ok || got.ID != 1 || got.Text != "A red door on the left." || got.HasAudio {
		t.Fatalf("Latest() = %+v, %v", got, ok)
	}
	if _, _, ok := a.Audio(); ok {
		t.Error("no audio expected without a speech client")
	}
}

func TestAnnouncerKeepsSynthesizedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte("AUDIO:" + payload["input"].(string)))
	}))
	defer server.Close()

	a := NewAnnouncer(New(Config{APIKey: "k", BaseURL: server.URL}), nil)
	a.Announce(context.Background(), "A crowded platform.")
	a.Announce(context.Background(), "An empty street.")

	audio, latest, ok := a.Audio()
	if !ok {
		t.Fatal("expected audio for the latest announcement")
	}
	if latest.ID != 2 || latest.Text != "An empty street." || !latest.HasAudio {
		t.Errorf("latest = %+v", latest)
	}
	if string(audio.Data) != "AUDIO:An empty street." {
		t.Errorf("audio = %q", audio.Data)
	}
}
