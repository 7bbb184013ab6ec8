package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/internal/speech"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

// SpeechEndpoint handles GET /speech: audio for the focused fragment, or
// for the text query parameter when given.
type SpeechEndpoint struct{}

func (e *SpeechEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/speech", e.handler
}

func (e *SpeechEndpoint) RequiresInit() bool { return true }

func (e *SpeechEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	client := svcctx.SpeechFrom(ctx)
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is disabled")
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		store := svcctx.StoreFrom(ctx)
		if store == nil {
			writeError(w, http.StatusServiceUnavailable, "state store not available")
			return
		}
		focused, ok := store.FocusedText()
		if !ok {
			writeError(w, http.StatusNotFound, "nothing is focused")
			return
		}
		text = focused
	}

	audio, err := client.Synthesize(ctx, text, r.URL.Query().Get("format"))
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if logger := svcctx.LoggerFrom(ctx); logger != nil {
			logger.Error("speech synthesis failed", "error", err)
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

func (e *SpeechEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "speech",
		Short: "Download audio for the focused fragment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, contentType, err := client.GetRaw(cmd.Context(), "/speech")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write audio: %w", err)
			}
			return api.Output(map[string]any{
				"file":         out,
				"bytes":        len(data),
				"content_type": contentType,
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "speech.mp3", "Output file")
	return cmd
}

// MetricsEndpoint handles GET /metrics in the Prometheus exposition format.
type MetricsEndpoint struct{}

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return false }

func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svcctx.MetricsFrom(r.Context()).Handler().ServeHTTP(w, r)
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the server's Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, _, err := client.GetRaw(cmd.Context(), "/metrics")
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}
