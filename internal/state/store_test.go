package state

import (
	"image"
	"image/color"
	"reflect"
	"sync"
	"testing"

	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/focus"
)

func TestStore_FrameIsCopied(t *testing.T) {
	s := New()
	if img, seq := s.Frame(); img != nil || seq != 0 {
		t.Fatalf("expected no frame, got %v %d", img, seq)
	}

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	s.SetFrame(src)

	// Mutating the writer's buffer must not affect the stored frame.
	src.Set(1, 1, color.RGBA{G: 255, A: 255})

	got, seq := s.Frame()
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if r, g, _, _ := got.At(1, 1).RGBA(); r == 0 || g != 0 {
		t.Errorf("stored frame was modified through writer buffer")
	}

	// Mutating a reader's copy must not affect the stored frame.
	got.Set(1, 1, color.NRGBA{B: 255, A: 255})
	again, _ := s.Frame()
	if _, _, b, _ := again.At(1, 1).RGBA(); b != 0 {
		t.Errorf("stored frame was modified through reader copy")
	}
}

func TestStore_TakeCommandConsumesOnce(t *testing.T) {
	s := New()
	if s.TakeCommand() != command.None {
		t.Fatal("expected idle store")
	}

	s.SetCommand(command.Next)
	if got := s.PendingCommand(); got != command.Next {
		t.Errorf("PendingCommand() = %v", got)
	}
	if got := s.TakeCommand(); got != command.Next {
		t.Errorf("TakeCommand() = %v, want next", got)
	}
	if got := s.TakeCommand(); got != command.None {
		t.Errorf("second TakeCommand() = %v, want none", got)
	}
}

func TestStore_ReadingSnapshot(t *testing.T) {
	s := New()
	texts := []string{"Hello", "World"}
	s.PublishReading(Reading{Texts: texts, Frame: 7})

	texts[0] = "mutated"
	r := s.Reading()
	if !reflect.DeepEqual(r.Texts, []string{"Hello", "World"}) || r.Frame != 7 {
		t.Errorf("Reading() = %+v", r)
	}

	words := s.Words()
	words[1] = "mutated"
	if s.Words()[1] != "World" {
		t.Error("Words() returned shared slice")
	}
}

func TestStore_RemoteWordsReplacedWholesale(t *testing.T) {
	s := New()
	if got := s.RemoteWords(); len(got) != 0 {
		t.Fatalf("RemoteWords() = %v", got)
	}

	s.SetRemoteWords([]string{"a", "b", "c"})
	s.SetRemoteWords([]string{"d"})
	if got := s.RemoteWords(); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("RemoteWords() = %v, want [d]", got)
	}
}

func TestStore_FocusedText(t *testing.T) {
	s := New()
	if _, ok := s.FocusedText(); ok {
		t.Fatal("expected no focused text")
	}

	s.PublishReading(Reading{Texts: []string{"One", "Two"}})
	s.SetFocus(focus.State{Index: 1, Count: 2})
	if txt, ok := s.FocusedText(); !ok || txt != "Two" {
		t.Errorf("FocusedText() = %q, %v", txt, ok)
	}

	// A stale index against a shorter reading is not an error.
	s.PublishReading(Reading{Texts: []string{"Only"}})
	if _, ok := s.FocusedText(); ok {
		t.Error("expected stale focus index to yield no text")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.SetFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)))
			s.PublishReading(Reading{Texts: []string{"x"}, Frame: uint64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Frame()
			s.Reading()
			s.FocusedText()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.SetRemoteWords([]string{"r"})
			s.RemoteWords()
			s.SetCommand(command.Prev)
			s.TakeCommand()
		}
	}()
	wg.Wait()
}
