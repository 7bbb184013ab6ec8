// Package state holds the values shared between the frame loop, the remote
// extraction worker and HTTP readers.
//
// Each field has a single writer:
//   - frame: the frame loop
//   - pending command: external actors set it, the frame loop takes it
//   - reading: the frame loop, once per OCR pass
//   - remote words: the remote extractor
//   - focus: the frame loop, after navigating
//
// Readers always receive copies and may observe values up to one frame old.
package state

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/focus"
	"github.com/jackzampolin/sightspeech/internal/ocr"
)

// Reading is the result of one OCR pass. Texts[i] is the corrected text of
// Detections[i]; both are in reading order.
type Reading struct {
	Detections []ocr.Detection `json:"detections"`
	Texts      []string        `json:"texts"`
	Frame      uint64          `json:"frame"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Store is the shared state surface.
type Store struct {
	frameMu  sync.Mutex
	frame    *image.NRGBA
	frameSeq uint64

	pending atomic.Int32
	reading atomic.Pointer[Reading]
	remote  atomic.Pointer[[]string]
	focus   atomic.Pointer[focus.State]
}

// New returns an empty store: no frame, no command, unfocused.
func New() *Store {
	s := &Store{}
	s.reading.Store(&Reading{})
	empty := []string{}
	s.remote.Store(&empty)
	s.focus.Store(&focus.State{Index: focus.Unfocused})
	return s
}

// SetFrame stores a private copy of img.
func (s *Store) SetFrame(img image.Image) {
	cp := imaging.Clone(img)
	s.frameMu.Lock()
	s.frame = cp
	s.frameSeq++
	s.frameMu.Unlock()
}

// Frame returns a copy of the latest frame and its sequence number.
// It returns nil, 0 before the first frame.
func (s *Store) Frame() (*image.NRGBA, uint64) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.frame == nil {
		return nil, 0
	}
	return imaging.Clone(s.frame), s.frameSeq
}

// FrameSeq returns the sequence number of the latest frame without copying it.
func (s *Store) FrameSeq() uint64 {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frameSeq
}

// SetCommand replaces the pending command.
func (s *Store) SetCommand(c command.Command) {
	s.pending.Store(int32(c))
}

// PendingCommand returns the pending command without consuming it.
func (s *Store) PendingCommand() command.Command {
	return command.Command(s.pending.Load())
}

// TakeCommand consumes the pending command, resetting it to None.
func (s *Store) TakeCommand() command.Command {
	return command.Command(s.pending.Swap(int32(command.None)))
}

// PublishReading replaces the current reading. Detections and texts are
// copied so later changes by the caller are not observed.
func (s *Store) PublishReading(r Reading) {
	cp := Reading{
		Detections: append([]ocr.Detection(nil), r.Detections...),
		Texts:      append([]string(nil), r.Texts...),
		Frame:      r.Frame,
		UpdatedAt:  r.UpdatedAt,
	}
	s.reading.Store(&cp)
}

// Reading returns a copy of the current reading.
func (s *Store) Reading() Reading {
	r := s.reading.Load()
	return Reading{
		Detections: append([]ocr.Detection{}, r.Detections...),
		Texts:      append([]string{}, r.Texts...),
		Frame:      r.Frame,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Words returns the current ordered text list.
func (s *Store) Words() []string {
	return append([]string{}, s.reading.Load().Texts...)
}

// SetRemoteWords replaces the remote words wholesale.
func (s *Store) SetRemoteWords(words []string) {
	cp := append([]string{}, words...)
	s.remote.Store(&cp)
}

// RemoteWords returns a copy of the latest remote extraction result.
func (s *Store) RemoteWords() []string {
	return append([]string{}, (*s.remote.Load())...)
}

// SetFocus publishes the navigator state.
func (s *Store) SetFocus(st focus.State) {
	s.focus.Store(&st)
}

// Focus returns the last published navigator state.
func (s *Store) Focus() focus.State {
	return *s.focus.Load()
}

// FocusedText returns the text under focus, if any. The index is checked
// against the current reading since the two are published separately.
func (s *Store) FocusedText() (string, bool) {
	st := s.Focus()
	texts := s.reading.Load().Texts
	if !st.Focused() || st.Index >= len(texts) {
		return "", false
	}
	return texts[st.Index], true
}
