package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/internal/focus"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Frames string `json:"frames,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready. The server is ready once the frame
// loop has stored its first frame.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Frames: "ok"}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		resp.Status = "degraded"
		resp.Frames = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if store.FrameSeq() == 0 {
		resp.Status = "degraded"
		resp.Frames = "waiting"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (a frame has been captured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Frames != "" {
				fmt.Printf("Frames: %s\n", resp.Frames)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server         string        `json:"server"`
	Frames         uint64        `json:"frames"`
	PendingCommand string        `json:"pending_command"`
	Cadence        CadenceStatus `json:"cadence"`
	Lexicon        LexiconStatus `json:"lexicon"`
	Reading        ReadingStatus `json:"reading"`
	Focus          focus.State   `json:"focus"`
	Remote         RemoteStatus  `json:"remote"`
	Speech         bool          `json:"speech"`
}

// CadenceStatus shows the active frame budget.
type CadenceStatus struct {
	SkipInterval int `json:"skip_interval"`
	TargetWidth  int `json:"target_width"`
}

// LexiconStatus shows the loaded dictionary.
type LexiconStatus struct {
	Words    int  `json:"words"`
	Degraded bool `json:"degraded"`
}

// ReadingStatus summarizes the latest published reading.
type ReadingStatus struct {
	Words     int       `json:"words"`
	Frame     uint64    `json:"frame"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemoteStatus shows the remote extraction path.
type RemoteStatus struct {
	Enabled     bool   `json:"enabled"`
	Provider    string `json:"provider,omitempty"`
	Busy        bool   `json:"busy"`
	RemoteWords int    `json:"remote_words"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{Server: "running"}

	if store := svcctx.StoreFrom(ctx); store != nil {
		reading := store.Reading()
		resp.Frames = store.FrameSeq()
		resp.PendingCommand = store.PendingCommand().String()
		resp.Reading = ReadingStatus{Words: len(reading.Texts), Frame: reading.Frame, UpdatedAt: reading.UpdatedAt}
		resp.Focus = store.Focus()
		resp.Remote.RemoteWords = len(store.RemoteWords())
	}
	if cad := svcctx.CadenceFrom(ctx); cad != nil {
		c := cad.Config()
		resp.Cadence = CadenceStatus{SkipInterval: c.SkipInterval, TargetWidth: c.TargetWidth}
	}
	if corr := svcctx.CorrectorFrom(ctx); corr != nil {
		resp.Lexicon = LexiconStatus{Words: corr.Dictionary().Len(), Degraded: corr.Degraded()}
	}
	if ex := svcctx.ExtractorFrom(ctx); ex != nil {
		resp.Remote.Enabled = true
		resp.Remote.Provider = ex.Client().Provider()
	}
	if d := svcctx.DispatcherFrom(ctx); d != nil {
		resp.Remote.Busy = !d.Idle()
	}
	resp.Speech = svcctx.SpeechFrom(ctx) != nil

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
