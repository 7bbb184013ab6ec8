package remote

import (
	"context"
	"net/http"
)

// Request is one extraction call as seen by a Codec.
type Request struct {
	ID        string
	Directive string
	ImageJPEG []byte
	Mode      Mode
}

// Codec translates a Request into a provider's wire format and extracts
// the model's text from a successful response body.
type Codec interface {
	Name() string
	NewHTTPRequest(ctx context.Context, req Request) (*http.Request, error)
	DecodeText(body []byte) (string, error)
}

// CodecConfig is shared by the built-in codecs.
type CodecConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewCodec returns the codec for a provider name: "gemini" or "openrouter".
func NewCodec(provider string, cfg CodecConfig) (Codec, error) {
	switch provider {
	case "", GeminiName:
		return NewGeminiCodec(cfg), nil
	case OpenRouterName:
		return NewOpenRouterCodec(cfg), nil
	default:
		return nil, &UnknownProviderError{Provider: provider}
	}
}

// UnknownProviderError is returned by NewCodec for unsupported providers.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return "unknown remote provider: " + e.Provider
}
