package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackzampolin/sightspeech/internal/cadence"
	"github.com/jackzampolin/sightspeech/internal/capture"
	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/focus"
	"github.com/jackzampolin/sightspeech/internal/layout"
	"github.com/jackzampolin/sightspeech/internal/lexicon"
	"github.com/jackzampolin/sightspeech/internal/ocr"
	"github.com/jackzampolin/sightspeech/internal/remote"
	"github.com/jackzampolin/sightspeech/internal/state"
)

// frameSource yields n frames of the given size, then ErrNoFrame.
type frameSource struct {
	n, width, height int
	read             int
}

func (s *frameSource) Read(context.Context) (image.Image, error) {
	if s.read >= s.n {
		return nil, capture.ErrNoFrame
	}
	s.read++
	return image.NewNRGBA(image.Rect(0, 0, s.width, s.height)), nil
}

func (s *frameSource) Close() error { return nil }

func det(text string, x, y int) ocr.Detection {
	return ocr.Detection{
		Box:        ocr.RectPolygon(image.Rect(x, y, x+40, y+20)),
		Text:       text,
		Confidence: 0.9,
	}
}

func signDetections() []ocr.Detection {
	return []ocr.Detection{
		det("keep", 5, 60),
		det("--", 100, 12),
		det("left", 60, 12),
		det("Exit!", 5, 10),
	}
}

// staticEngine returns dets on every call and counts calls.
type staticEngine struct {
	dets  []ocr.Detection
	err   error
	calls atomic.Int32
	seen  []image.Rectangle
}

func (e *staticEngine) Name() string { return "static" }

func (e *staticEngine) Detect(_ context.Context, img image.Image) ([]ocr.Detection, error) {
	e.calls.Add(1)
	e.seen = append(e.seen, img.Bounds())
	if e.err != nil {
		return nil, e.err
	}
	return append([]ocr.Detection(nil), e.dets...), nil
}

type recordingSubmitter struct {
	err  error
	cmds []command.Command
}

func (r *recordingSubmitter) Submit(cmd command.Command, _ image.Image) (string, error) {
	r.cmds = append(r.cmds, cmd)
	if r.err != nil {
		return "", r.err
	}
	return "job-1", nil
}

func newTestPipeline(t *testing.T, src capture.Source, engine ocr.Engine, skip int, sub Submitter) (*Pipeline, *state.Store) {
	t.Helper()
	store := state.New()
	dict := lexicon.NewDictionary(map[string]int64{"exit": 1000, "keep": 900, "left": 800}, lexicon.DefaultMaxEditDistance)
	cfg := Config{
		Source:    src,
		Engine:    engine,
		Cadence:   cadence.New(cadence.Config{SkipInterval: skip, TargetWidth: 640}),
		Layout:    layout.DefaultOptions(),
		Corrector: lexicon.NewCorrectorWithDictionary(dict, lexicon.Config{}),
		Navigator: focus.NewNavigator(),
		Store:     store,
	}
	if sub != nil {
		cfg.Remote = sub
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, store
}

func TestStepPublishesOrderedCorrectedText(t *testing.T) {
	engine := &staticEngine{dets: signDetections()}
	p, store := newTestPipeline(t, &frameSource{n: 1, width: 200, height: 100}, engine, 1, nil)

	if err := p.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	reading := store.Reading()
	if got := strings.Join(reading.Texts, " "); got != "Exit Left Keep" {
		t.Fatalf("Texts = %q, want %q", got, "Exit Left Keep")
	}
	if len(reading.Detections) != len(reading.Texts) {
		t.Fatalf("detections (%d) and texts (%d) must pair up", len(reading.Detections), len(reading.Texts))
	}
	if reading.Detections[1].Text != "left" {
		t.Fatalf("detection 1 = %q, want left", reading.Detections[1].Text)
	}
	if st := store.Focus(); st.Index != focus.Unfocused || st.Count != 3 {
		t.Fatalf("focus = %+v, want unfocused over 3", st)
	}
	if _, seq := store.Frame(); seq != 1 {
		t.Fatalf("frame seq = %d, want 1", seq)
	}
}

func TestCadenceSkipsFrames(t *testing.T) {
	engine := &staticEngine{dets: signDetections()}
	p, _ := newTestPipeline(t, &frameSource{n: 5, width: 200, height: 100}, engine, 2, nil)

	for i := 0; i < 5; i++ {
		if err := p.Step(context.Background()); err != nil {
			t.Fatalf("Step() #%d error = %v", i, err)
		}
	}
	if got := engine.calls.Load(); got != 3 {
		t.Fatalf("ocr calls = %d, want 3 (frames 0, 2, 4)", got)
	}
	if p.Frames() != 5 {
		t.Fatalf("Frames() = %d, want 5", p.Frames())
	}
}

func TestOCRRescalesToFrameCoordinates(t *testing.T) {
	engine := &staticEngine{dets: []ocr.Detection{det("exit", 10, 10)}}
	p, store := newTestPipeline(t, &frameSource{n: 1, width: 1280, height: 720}, engine, 1, nil)

	if err := p.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if engine.seen[0].Dx() != 640 || engine.seen[0].Dy() != 360 {
		t.Fatalf("ocr saw %v, want 640x360", engine.seen[0])
	}
	tl := store.Reading().Detections[0].Box.TopLeft()
	if tl.X != 20 || tl.Y != 20 {
		t.Fatalf("top-left = %+v, want (20,20)", tl)
	}
}

func TestFailedOCRKeepsPreviousReading(t *testing.T) {
	engine := &staticEngine{dets: signDetections()}
	p, store := newTestPipeline(t, &frameSource{n: 2, width: 200, height: 100}, engine, 1, nil)

	if err := p.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	engine.err = errors.New("engine crashed")
	if err := p.Step(context.Background()); err != nil {
		t.Fatalf("Step() must not fail on OCR errors, got %v", err)
	}
	if got := strings.Join(store.Words(), " "); got != "Exit Left Keep" {
		t.Fatalf("Words = %q, want previous reading", got)
	}
}

func TestUnavailableEngineDoesNotStopLoop(t *testing.T) {
	p, store := newTestPipeline(t, &frameSource{n: 3, width: 200, height: 100}, ocr.Unavailable{}, 1, nil)
	for i := 0; i < 3; i++ {
		if err := p.Step(context.Background()); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if len(store.Words()) != 0 {
		t.Fatalf("expected no words, got %v", store.Words())
	}
}

func TestNavigationCommands(t *testing.T) {
	engine := &staticEngine{dets: signDetections()}
	p, store := newTestPipeline(t, &frameSource{n: 4, width: 200, height: 100}, engine, 1, nil)
	ctx := context.Background()

	store.SetCommand(command.Prev)
	if err := p.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if got := store.Focus().Index; got != 2 {
		t.Fatalf("PREV from unfocused = %d, want 2", got)
	}
	if store.PendingCommand() != command.None {
		t.Fatal("command should be consumed")
	}
	if text, ok := store.FocusedText(); !ok || text != "Keep" {
		t.Fatalf("FocusedText() = %q, %v", text, ok)
	}

	store.SetCommand(command.Next)
	if err := p.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if got := store.Focus().Index; got != 0 {
		t.Fatalf("NEXT from last = %d, want 0 (wrap)", got)
	}

	// Shrink the list below the focus index: focus clamps to 0.
	store.SetCommand(command.Prev)
	if err := p.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if got := store.Focus().Index; got != 2 {
		t.Fatalf("focus = %d, want 2", got)
	}
	engine.dets = []ocr.Detection{det("exit", 5, 5)}
	if err := p.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if st := store.Focus(); st.Index != 0 || st.Count != 1 {
		t.Fatalf("focus = %+v, want clamped to 0 of 1", st)
	}
}

func TestNavigationOnEmptyListIsConsumedNoop(t *testing.T) {
	p, store := newTestPipeline(t, &frameSource{n: 1, width: 200, height: 100}, &staticEngine{}, 1, nil)
	store.SetCommand(command.Next)
	if err := p.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.PendingCommand() != command.None {
		t.Fatal("command should be consumed")
	}
	if store.Focus().Focused() {
		t.Fatalf("focus = %+v, want unfocused", store.Focus())
	}
}

func TestRemoteCommandsAreDispatchedOnce(t *testing.T) {
	sub := &recordingSubmitter{err: remote.ErrBusy}
	p, store := newTestPipeline(t, &frameSource{n: 2, width: 200, height: 100}, &staticEngine{}, 1, sub)

	store.SetCommand(command.CaptureStructured)
	if err := p.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sub.cmds) != 1 || sub.cmds[0] != command.CaptureStructured {
		t.Fatalf("submitted %v, want exactly one capture", sub.cmds)
	}
	if store.PendingCommand() != command.None {
		t.Fatal("rejected command must still be consumed")
	}
}

func TestRunStopsOnFrameAcquisitionFailure(t *testing.T) {
	p, _ := newTestPipeline(t, &frameSource{n: 3, width: 200, height: 100}, &staticEngine{}, 1, nil)

	err := p.Run(context.Background())
	if !errors.Is(err, ErrFrameAcquisition) {
		t.Fatalf("Run() error = %v, want ErrFrameAcquisition", err)
	}
	if !errors.Is(err, capture.ErrNoFrame) {
		t.Fatalf("Run() error should wrap the source error, got %v", err)
	}
	if p.Frames() != 3 {
		t.Fatalf("Frames() = %d, want 3", p.Frames())
	}
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := newTestPipeline(t, &frameSource{n: 100, width: 10, height: 10}, &staticEngine{}, 1, nil)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}
