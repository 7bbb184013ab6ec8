package endpoints

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/internal/remote"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

// maxUploadBytes bounds the JSON body of an extraction request.
const maxUploadBytes = 20 << 20

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	// Image is base64 image data, optionally with a data URL header
	// such as "data:image/jpeg;base64,".
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// ExtractEndpoint handles POST /api/extract: a synchronous structured
// extraction of an uploaded image. The response is always a JSON array of
// strings. Shared state is not modified.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Image == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Both 'image' (base64) and 'prompt' are required")
		return
	}

	img, err := decodeUpload(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	extractor := svcctx.ExtractorFrom(r.Context())
	if extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "remote extraction is disabled")
		return
	}

	words, err := extractor.ExtractWords(r.Context(), img, req.Prompt)
	if err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Error("extract failed", "error", err)
		}
		writeError(w, extractStatus(err), err.Error())
		return
	}
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, words)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "extract <image-file>",
		Short: "Extract read-aloud text from an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			client := api.NewClient(getServerURL())
			req := ExtractRequest{
				Image:  base64.StdEncoding.EncodeToString(data),
				Prompt: prompt,
			}
			var words []string
			if err := client.Post(cmd.Context(), "/api/extract", req, &words); err != nil {
				return err
			}
			return api.Output(words)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", remote.DefaultCaptureRequest, "What to read from the image")
	return cmd
}

// decodeUpload strips an optional data URL header and decodes the image.
func decodeUpload(data string) (image.Image, error) {
	if i := strings.Index(data, ","); i >= 0 {
		data = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	return img, nil
}

// extractStatus maps remote failures to 502 and everything else to 500.
func extractStatus(err error) int {
	switch {
	case errors.Is(err, remote.ErrTransient),
		errors.Is(err, remote.ErrPermanent),
		errors.Is(err, remote.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
