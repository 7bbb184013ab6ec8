package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	OpenRouterName           = "openrouter"
	openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"
	openRouterDefaultModel   = "google/gemini-2.5-flash"
)

// OpenRouterCodec speaks the OpenAI-compatible chat completions API.
type OpenRouterCodec struct {
	baseURL string
	apiKey  string
	model   string
}

// NewOpenRouterCodec creates an OpenRouter codec with defaults for empty fields.
func NewOpenRouterCodec(cfg CodecConfig) *OpenRouterCodec {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openRouterDefaultModel
	}
	return &OpenRouterCodec{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// Name returns "openrouter".
func (c *OpenRouterCodec) Name() string { return OpenRouterName }

type openRouterRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterMessage       `json:"messages"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
}

type openRouterMessage struct {
	Role    string              `json:"role"`
	Content []openRouterContent `json:"content"`
}

type openRouterContent struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *openRouterImageURL `json:"image_url,omitempty"`
}

type openRouterImageURL struct {
	URL string `json:"url"`
}

type openRouterResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// NewHTTPRequest builds a vision chat completion with the image as a data URL.
func (c *OpenRouterCodec) NewHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.ImageJPEG)
	body := openRouterRequest{
		Model: c.model,
		Messages: []openRouterMessage{{
			Role: "user",
			Content: []openRouterContent{
				{Type: "text", Text: req.Directive},
				{Type: "image_url", ImageURL: &openRouterImageURL{URL: dataURL}},
			},
		}},
	}

	if s, ok := req.Mode.(Structured); ok && len(s.Schema) > 0 {
		wrapper, err := json.Marshal(map[string]any{
			"name":   "text_chunks",
			"strict": true,
			"schema": s.Schema,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response format: %w", err)
		}
		body.ResponseFormat = &openRouterResponseFormat{Type: "json_schema", JSONSchema: wrapper}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/sightspeech")
	httpReq.Header.Set("X-Title", "SightSpeech")
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}
	return httpReq, nil
}

// DecodeText returns the first choice's message content.
func (c *OpenRouterCodec) DecodeText(body []byte) (string, error) {
	var resp openRouterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: api error: %s", ErrMalformedResponse, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices (id=%s)", ErrMalformedResponse, resp.ID)
	}
	return contentText(resp.Choices[0].Message.Content), nil
}

// contentText flattens string or multipart message content.
func contentText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok && m["type"] == "text" {
				if s, ok := m["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		return sb.String()
	default:
		return ""
	}
}
