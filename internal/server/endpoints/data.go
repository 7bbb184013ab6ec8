package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

// CommandRequest is the body of POST /data.
type CommandRequest struct {
	Key string `json:"key"`
}

// CommandResponse acknowledges a queued command.
type CommandResponse struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

// WordsResponse carries an ordered list of strings.
type WordsResponse struct {
	Words []string `json:"words"`
}

// Lines implements api.Liner.
func (r WordsResponse) Lines() []string { return r.Words }

// FocusResponse describes the navigator state and the text under focus.
type FocusResponse struct {
	Index       int    `json:"index"`
	Count       int    `json:"count"`
	Focused     bool   `json:"focused"`
	FocusedText string `json:"focused_text,omitempty"`
}

// Lines implements api.Liner.
func (r FocusResponse) Lines() []string {
	if !r.Focused {
		return nil
	}
	return []string{r.FocusedText}
}

// CommandEndpoint handles POST /data. The command replaces any pending one
// and is acted on by the frame loop on its next iteration.
type CommandEndpoint struct{}

func (e *CommandEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/data", e.handler
}

func (e *CommandEndpoint) RequiresInit() bool { return true }

func (e *CommandEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cmd, err := command.Parse(req.Key)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store not available")
		return
	}
	store.SetCommand(cmd)

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Debug("command queued", "command", cmd.String())
	}
	writeJSON(w, http.StatusOK, CommandResponse{Status: "queued", Command: cmd.String()})
}

func (e *CommandEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "command <key>",
		Short: "Send a command: c (capture), d (describe), n (next), p (prev)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := command.Parse(args[0]); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp CommandResponse
			if err := client.Post(cmd.Context(), "/data", CommandRequest{Key: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// WordsEndpoint handles GET /data/words, the ordered text of the latest reading.
type WordsEndpoint struct{}

func (e *WordsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/data/words", e.handler
}

func (e *WordsEndpoint) RequiresInit() bool { return true }

func (e *WordsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store not available")
		return
	}
	writeJSON(w, http.StatusOK, WordsResponse{Words: store.Words()})
}

func (e *WordsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return wordsCommand(getServerURL, "words", "Print the ordered text of the latest reading", "/data/words")
}

// SentencesEndpoint handles GET /data/sentences, the latest remote extraction result.
type SentencesEndpoint struct{}

func (e *SentencesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/data/sentences", e.handler
}

func (e *SentencesEndpoint) RequiresInit() bool { return true }

func (e *SentencesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store not available")
		return
	}
	writeJSON(w, http.StatusOK, WordsResponse{Words: store.RemoteWords()})
}

func (e *SentencesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return wordsCommand(getServerURL, "sentences", "Print the latest remote extraction result", "/data/sentences")
}

func wordsCommand(getServerURL func() string, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp WordsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp.Words)
		},
	}
}

// FocusEndpoint handles GET /data/focus.
type FocusEndpoint struct{}

func (e *FocusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/data/focus", e.handler
}

func (e *FocusEndpoint) RequiresInit() bool { return true }

func (e *FocusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store not available")
		return
	}
	st := store.Focus()
	text, ok := store.FocusedText()
	writeJSON(w, http.StatusOK, FocusResponse{
		Index:       st.Index,
		Count:       st.Count,
		Focused:     ok,
		FocusedText: text,
	})
}

func (e *FocusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "focus",
		Short: "Show the focused fragment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp FocusResponse
			if err := client.Get(cmd.Context(), "/data/focus", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// VideoFeedEndpoint handles GET /video_feed.
type VideoFeedEndpoint struct {
	Handler http.Handler
}

func (e *VideoFeedEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/video_feed", e.handler
}

func (e *VideoFeedEndpoint) RequiresInit() bool { return true }

func (e *VideoFeedEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if e.Handler == nil {
		writeError(w, http.StatusServiceUnavailable, "video feed not available")
		return
	}
	e.Handler.ServeHTTP(w, r)
}

func (e *VideoFeedEndpoint) Command(_ func() string) *cobra.Command {
	return nil // Streams are consumed by browsers
}
