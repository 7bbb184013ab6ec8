package remote

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/state"
)

// countingTimer records backoff waits and fires immediately.
type countingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *countingTimer) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *countingTimer) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func testFrame() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	return img
}

func geminiBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

// scriptedServer answers with statuses[i] for the i-th request and body on 2xx.
func scriptedServer(t *testing.T, statuses []int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		status := http.StatusOK
		if i < len(statuses) {
			status = statuses[i]
		}
		w.WriteHeader(status)
		if status >= 200 && status < 300 {
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, baseURL string, timer *countingTimer) *Client {
	t.Helper()
	policy := DefaultPolicy()
	policy.Timer = timer
	c, err := NewClient(Config{
		Codec:  NewGeminiCodec(CodecConfig{BaseURL: baseURL, APIKey: "test-key"}),
		Policy: policy,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestClientRetriesServerErrors(t *testing.T) {
	srv, calls := scriptedServer(t, []int{503, 503, 200}, geminiBody(`["Exit", "Keep left"]`))
	timer := &countingTimer{}
	client := newTestClient(t, srv.URL, timer)

	res, err := client.Extract(context.Background(), testFrame(), "read", TextChunks())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	delays := timer.Delays()
	if len(delays) != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", len(delays))
	}
	if delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", delays)
	}
	if res.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", res.Attempts)
	}
	if strings.Join(res.Words, "|") != "Exit|Keep left" {
		t.Fatalf("Words = %v", res.Words)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := scriptedServer(t, []int{404}, "")
	timer := &countingTimer{}
	client := newTestClient(t, srv.URL, timer)

	_, err := client.Extract(context.Background(), testFrame(), "read", TextChunks())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if n := len(timer.Delays()); n != 0 {
		t.Fatalf("backoff sleeps = %d, want 0", n)
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := scriptedServer(t, []int{500, 502, 503, 200}, geminiBody(`["late"]`))
	timer := &countingTimer{}
	client := newTestClient(t, srv.URL, timer)

	_, err := client.Extract(context.Background(), testFrame(), "read", TextChunks())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	if n := len(timer.Delays()); n != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", n)
	}
}

func TestClientFreeformReturnsText(t *testing.T) {
	srv, _ := scriptedServer(t, nil, geminiBody("  A crosswalk with a red signal.  "))
	client := newTestClient(t, srv.URL, &countingTimer{})

	res, err := client.Extract(context.Background(), testFrame(), "describe", Freeform{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != "A crosswalk with a red signal." {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Words != nil {
		t.Fatalf("freeform should not produce words, got %v", res.Words)
	}
}

func TestExtractorMalformedLeavesRemoteWords(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", geminiBody("definitely not json")},
		{"wrong shape", geminiBody(`{"words": ["a"]}`)},
		{"non-string items", geminiBody(`[1, 2, 3]`)},
		{"undecodable envelope", `{"candidates": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, nil, tt.body)
			timer := &countingTimer{}
			store := state.New()
			store.SetRemoteWords([]string{"previous"})

			ex, err := NewExtractor(ExtractorConfig{Client: newTestClient(t, srv.URL, timer), Store: store})
			if err != nil {
				t.Fatalf("NewExtractor() error = %v", err)
			}

			err = ex.Run(context.Background(), testFrame(), command.CaptureStructured)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if got := store.RemoteWords(); len(got) != 1 || got[0] != "previous" {
				t.Fatalf("RemoteWords = %v, want [previous]", got)
			}
			if calls.Load() != 1 || len(timer.Delays()) != 0 {
				t.Fatalf("malformed responses must not be retried")
			}
		})
	}
}

func TestExtractorCaptureReplacesRemoteWords(t *testing.T) {
	srv, _ := scriptedServer(t, nil, geminiBody("```json\n[\"Platform 2\", \"Trains to Oxford\"]\n```"))
	store := state.New()
	store.SetRemoteWords([]string{"old", "older", "oldest"})

	ex, err := NewExtractor(ExtractorConfig{Client: newTestClient(t, srv.URL, &countingTimer{}), Store: store})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	if err := ex.Run(context.Background(), testFrame(), command.CaptureStructured); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := store.RemoteWords()
	if strings.Join(got, "|") != "Platform 2|Trains to Oxford" {
		t.Fatalf("RemoteWords = %v", got)
	}
}

func TestExtractorDescribeAnnouncesWithoutStoring(t *testing.T) {
	srv, _ := scriptedServer(t, nil, geminiBody("A quiet street."))
	store := state.New()
	store.SetRemoteWords([]string{"keep"})

	var announced string
	ex, err := NewExtractor(ExtractorConfig{
		Client:   newTestClient(t, srv.URL, &countingTimer{}),
		Store:    store,
		Announce: func(_ context.Context, text string) { announced = text },
	})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	if err := ex.Run(context.Background(), testFrame(), command.DescribeScene); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if announced != "A quiet street." {
		t.Fatalf("announced = %q", announced)
	}
	if got := store.RemoteWords(); len(got) != 1 || got[0] != "keep" {
		t.Fatalf("describe must not touch remote words, got %v", got)
	}
}

func TestExtractorRejectsLocalCommands(t *testing.T) {
	srv, calls := scriptedServer(t, nil, geminiBody(`[]`))
	ex, err := NewExtractor(ExtractorConfig{Client: newTestClient(t, srv.URL, &countingTimer{}), Store: state.New()})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	if err := ex.Run(context.Background(), testFrame(), command.Next); !errors.Is(err, command.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("local command must not reach the service")
	}
}

func TestGeminiRequestPayload(t *testing.T) {
	var captured map[string]any
	var apiKey, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-goog-api-key")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(geminiBody(`["ok"]`)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &countingTimer{})
	if _, err := client.Extract(context.Background(), testFrame(), StructuredDirective("read the sign"), TextChunks()); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if apiKey != "test-key" {
		t.Fatalf("api key header = %q", apiKey)
	}
	if path != "/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("path = %q", path)
	}

	gen, _ := captured["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Fatalf("responseMimeType = %v", gen["responseMimeType"])
	}
	schema, _ := gen["responseSchema"].(map[string]any)
	if schema["type"] != "ARRAY" {
		t.Fatalf("schema type = %v, want ARRAY", schema["type"])
	}
	items, _ := schema["items"].(map[string]any)
	if items["type"] != "STRING" {
		t.Fatalf("items type = %v, want STRING", items["type"])
	}

	contents, _ := captured["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	if inline["mimeType"] != "image/jpeg" || inline["data"] == "" {
		t.Fatalf("inline image = %v", inline)
	}
	text := parts[1].(map[string]any)["text"].(string)
	if !strings.HasPrefix(text, StructuredDirectivePrefix) || !strings.HasSuffix(text, "read the sign") {
		t.Fatalf("directive = %q", text)
	}
}

func TestGeminiFreeformHasNoSchema(t *testing.T) {
	codec := NewGeminiCodec(CodecConfig{APIKey: "k"})
	req, err := codec.NewHTTPRequest(context.Background(), Request{Directive: "describe", ImageJPEG: []byte{1}, Mode: Freeform{}})
	if err != nil {
		t.Fatalf("NewHTTPRequest() error = %v", err)
	}
	body, _ := io.ReadAll(req.Body)
	if strings.Contains(string(body), "generationConfig") {
		t.Fatalf("freeform request should not carry a schema: %s", body)
	}
}

func TestOpenRouterRequestPayload(t *testing.T) {
	codec := NewOpenRouterCodec(CodecConfig{APIKey: "or-key"})
	req, err := codec.NewHTTPRequest(context.Background(), Request{
		ID:        "req-1",
		Directive: "read",
		ImageJPEG: []byte("jpeg"),
		Mode:      TextChunks(),
	})
	if err != nil {
		t.Fatalf("NewHTTPRequest() error = %v", err)
	}
	if req.URL.String() != "https://openrouter.ai/api/v1/chat/completions" {
		t.Fatalf("url = %s", req.URL)
	}
	if req.Header.Get("Authorization") != "Bearer or-key" {
		t.Fatalf("authorization = %q", req.Header.Get("Authorization"))
	}

	var payload map[string]any
	body, _ := io.ReadAll(req.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format = %v", rf)
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "text_chunks" || js["strict"] != true {
		t.Fatalf("json_schema = %v", js)
	}
	if !strings.Contains(string(body), "data:image/jpeg;base64,") {
		t.Fatal("expected data URL image")
	}
}

func TestOpenRouterDecodeText(t *testing.T) {
	codec := NewOpenRouterCodec(CodecConfig{})

	text, err := codec.DecodeText([]byte(`{"id":"x","choices":[{"message":{"content":"[\"a\"]"}}]}`))
	if err != nil || text != `["a"]` {
		t.Fatalf("DecodeText() = %q, %v", text, err)
	}

	text, err = codec.DecodeText([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}]}}]}`))
	if err != nil || text != "hi there" {
		t.Fatalf("multipart DecodeText() = %q, %v", text, err)
	}

	if _, err := codec.DecodeText([]byte(`{"choices":[]}`)); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse for empty choices, got %v", err)
	}
	if _, err := codec.DecodeText([]byte(`{"error":{"message":"bad"}}`)); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse for api error, got %v", err)
	}
}

func TestNewCodec(t *testing.T) {
	for _, name := range []string{"", "gemini", "openrouter"} {
		if _, err := NewCodec(name, CodecConfig{}); err != nil {
			t.Fatalf("NewCodec(%q) error = %v", name, err)
		}
	}
	var upe *UnknownProviderError
	if _, err := NewCodec("carrier-pigeon", CodecConfig{}); !errors.As(err, &upe) {
		t.Fatalf("expected UnknownProviderError, got %v", err)
	}
}

func TestDecodeWordsRecovery(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `["a","b"]`, "a|b", false},
		{"fenced", "```json\n[\"a\"]\n```", "a", false},
		{"prose", `Here you go: ["x", "y"] hope that helps`, "x|y", false},
		{"empty array", `[]`, "", false},
		{"object", `{"a":1}`, "", true},
		{"empty", ``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeWords(tt.content, TextChunksSchema)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeWords() error = %v", err)
			}
			if strings.Join(got, "|") != tt.want {
				t.Fatalf("decodeWords() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusErrorClassification(t *testing.T) {
	if !errors.Is(&StatusError{StatusCode: 503}, ErrTransient) {
		t.Fatal("503 should be transient")
	}
	if errors.Is(&StatusError{StatusCode: 429}, ErrTransient) {
		t.Fatal("429 should not be transient")
	}
	if !errors.Is(&StatusError{StatusCode: 400}, ErrPermanent) {
		t.Fatal("400 should be permanent")
	}
	if !errors.Is(&transportError{err: io.ErrUnexpectedEOF}, ErrTransient) {
		t.Fatal("transport errors should be transient")
	}
}

func TestPolicyBackoff(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := p.Backoff(uint(i + 1)); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

// blockingRunner blocks each Run until release is closed.
type blockingRunner struct {
	started chan command.Command
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, _ image.Image, cmd command.Command) error {
	b.started <- cmd
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestDispatcherRejectsWhileBusy(t *testing.T) {
	runner := &blockingRunner{started: make(chan command.Command, 2), release: make(chan struct{})}
	done := make(chan JobResult, 2)
	d, err := NewDispatcher(DispatcherConfig{Runner: runner, OnDone: func(r JobResult) { done <- r }})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	id, err := d.Submit(command.CaptureStructured, testFrame())
	if err != nil || id == "" {
		t.Fatalf("Submit() = %q, %v", id, err)
	}
	<-runner.started

	if _, err := d.Submit(command.DescribeScene, testFrame()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if d.Idle() {
		t.Fatal("dispatcher should be busy")
	}

	close(runner.release)
	select {
	case r := <-done:
		if r.Job.ID != id || r.Job.Command != command.CaptureStructured {
			t.Fatalf("unexpected result: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	if !d.Idle() {
		t.Fatal("dispatcher should be idle after the job")
	}

	if _, err := d.Submit(command.DescribeScene, testFrame()); err != nil {
		t.Fatalf("Submit() after idle error = %v", err)
	}
	select {
	case cmd := <-runner.started:
		if cmd != command.DescribeScene {
			t.Fatalf("started %v", cmd)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second job did not start")
	}
}

func TestDispatcherRejectsLocalCommands(t *testing.T) {
	d, err := NewDispatcher(DispatcherConfig{Runner: &blockingRunner{}})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	if _, err := d.Submit(command.Next, nil); !errors.Is(err, command.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if !d.Idle() {
		t.Fatal("rejected submit must not mark the dispatcher busy")
	}
}
