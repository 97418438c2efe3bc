package keys

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/dxfm-go/internal/event"
)

type sink struct{ events []event.Event }

func (s *sink) Enqueue(ev event.Event) bool {
	s.events = append(s.events, ev)
	return true
}

func newTestHost() (*Host, *sink) {
	s := &sink{}
	return NewHost(s, slog.New(slog.NewTextHandler(io.Discard, nil))), s
}

func TestKeyRowNotes(t *testing.T) {
	h, s := newTestHost()
	for _, b := range []byte(keyRow) {
		h.handleKey(b)
	}
	if len(s.events) != 13 {
		t.Fatalf("events = %d", len(s.events))
	}
	for i, ev := range s.events {
		if ev != event.NoteOn(uint8(DefaultBase+i), DefaultVelocity) {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
}

func TestKeyToggles(t *testing.T) {
	h, s := newTestHost()
	h.handleKey('a')
	h.handleKey('a')
	want := []event.Event{event.NoteOn(60, DefaultVelocity), event.NoteOff(60)}
	if len(s.events) != 2 || s.events[0] != want[0] || s.events[1] != want[1] {
		t.Fatalf("events = %+v", s.events)
	}
}

func TestOctaveShift(t *testing.T) {
	for _, tc := range []struct {
		name string
		keys string
		note uint8
	}{
		{"down", "za", 48},
		{"up twice", "xxa", 84},
		{"clamped low", strings.Repeat("z", 10) + "a", 0},
		{"clamped high", strings.Repeat("x", 10) + "k", 120},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h, s := newTestHost()
			for _, b := range []byte(tc.keys) {
				h.handleKey(b)
			}
			if len(s.events) != 1 || s.events[0].Data1 != tc.note {
				t.Fatalf("events = %+v want note %d", s.events, tc.note)
			}
		})
	}
}

func TestSustainToggle(t *testing.T) {
	h, s := newTestHost()
	h.handleKey(' ')
	h.handleKey(' ')
	if len(s.events) != 2 {
		t.Fatalf("events = %+v", s.events)
	}
	if s.events[0] != event.ControlChange(event.CCSustain, event.SustainThreshold) {
		t.Fatalf("pedal down = %+v", s.events[0])
	}
	if s.events[1] != event.ControlChange(event.CCSustain, 0) {
		t.Fatalf("pedal up = %+v", s.events[1])
	}
}

func TestQuitKeys(t *testing.T) {
	for _, b := range []byte{'q', 'Q', keyEsc, keyCtrlC} {
		h, _ := newTestHost()
		if h.handleKey(b) {
			t.Fatalf("key %#x did not quit", b)
		}
	}
	h, _ := newTestHost()
	if !h.handleKey('p') {
		t.Fatalf("unmapped key quit")
	}
}

func TestReadLoop(t *testing.T) {
	h, s := newTestHost()
	go h.readLoop(strings.NewReader("asq d"))
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("read loop did not stop")
	}
	if len(s.events) != 2 {
		t.Fatalf("events after quit = %+v", s.events)
	}
	h.Stop()
	h.Stop()
	if last := s.events[len(s.events)-1]; last != event.AllNotesOff() || len(s.events) != 3 {
		t.Fatalf("Stop events = %+v", s.events)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held[60] || h.held[62] {
		t.Fatalf("held notes not cleared")
	}
}

func TestReadLoopEOF(t *testing.T) {
	h, _ := newTestHost()
	go h.readLoop(strings.NewReader("a"))
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("read loop did not stop at EOF")
	}
}

// idleReader behaves like a non-blocking terminal with no pending input.
type idleReader struct{}

func (idleReader) Read([]byte) (int, error) { return 0, errWouldBlock }

func TestStopEndsIdleReadLoop(t *testing.T) {
	h, s := newTestHost()
	h.nonblock = true
	go h.readLoop(idleReader{})
	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not end the read loop")
	}
	select {
	case <-h.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}
	if len(s.events) != 1 || s.events[0] != event.AllNotesOff() {
		t.Fatalf("events = %+v", s.events)
	}
}

func TestKeysIgnoredAfterStop(t *testing.T) {
	h, s := newTestHost()
	h.Stop()
	for _, b := range []byte("a x") {
		if h.handleKey(b) {
			t.Fatalf("key %q handled after Stop", b)
		}
	}
	if len(s.events) != 1 || s.events[0] != event.AllNotesOff() {
		t.Fatalf("events = %+v", s.events)
	}
}
