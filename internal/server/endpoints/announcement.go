package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/internal/speech"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

// AnnouncementResponse is the latest scene description.
type AnnouncementResponse struct {
	speech.Announcement
	AudioURL string `json:"audio_url,omitempty"`
}

// Lines implements api.Liner.
func (r AnnouncementResponse) Lines() []string { return []string{r.Text} }

// AnnouncementEndpoint handles GET /speech/announcement.
type AnnouncementEndpoint struct{}

func (e *AnnouncementEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/speech/announcement", e.handler
}

func (e *AnnouncementEndpoint) RequiresInit() bool { return false }

func (e *AnnouncementEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	announcer := svcctx.AnnouncerFrom(r.Context())
	if announcer == nil {
		writeError(w, http.StatusServiceUnavailable, "announcements not available")
		return
	}
	latest, ok := announcer.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no announcement yet")
		return
	}
	resp := AnnouncementResponse{Announcement: latest}
	if latest.HasAudio {
		resp.AudioURL = "/speech/announcement/audio?id=" + strconv.FormatUint(latest.ID, 10)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *AnnouncementEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "announcement",
		Short: "Show the latest scene description",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AnnouncementResponse
			if err := client.Get(cmd.Context(), "/speech/announcement", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AnnouncementAudioEndpoint handles GET /speech/announcement/audio.
type AnnouncementAudioEndpoint struct{}

func (e *AnnouncementAudioEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/speech/announcement/audio", e.handler
}

func (e *AnnouncementAudioEndpoint) RequiresInit() bool { return false }

func (e *AnnouncementAudioEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	announcer := svcctx.AnnouncerFrom(r.Context())
	if announcer == nil {
		writeError(w, http.StatusServiceUnavailable, "announcements not available")
		return
	}
	audio, latest, ok := announcer.Audio()
	if !ok {
		writeError(w, http.StatusNotFound, "no announcement audio")
		return
	}
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("X-Announcement-Id", strconv.FormatUint(latest.ID, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

func (e *AnnouncementAudioEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}
