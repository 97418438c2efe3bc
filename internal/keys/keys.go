// Package keys plays the synth from a computer keyboard in a raw terminal.
package keys

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/cbegin/dxfm-go/internal/event"
)

// piano layout: a=C, w=C#, s=D ... k=C an octave up
const keyRow = "awsedftgyhujk"

const (
	DefaultBase     = 60
	DefaultVelocity = 0x6000
	minBase         = 0
	maxBase         = 108
	keyEsc          = 0x1B
	keyCtrlC        = 0x03
	pollInterval    = 5 * time.Millisecond
)

// Sink receives the events produced by key presses.
type Sink interface {
	Enqueue(ev event.Event) bool
}

// Host reads single key presses and turns them into note events. Terminals
// report no key release, so each press toggles its note.
type Host struct {
	sink     Sink
	logger   *slog.Logger
	mu       sync.Mutex
	base     int
	velocity uint16
	held     [128]bool
	sustain  bool
	stopped  bool
	stop     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	stopOnce sync.Once
	fd       int
	nonblock bool
	oldState *term.State
}

func NewHost(sink Sink, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		sink:     sink,
		logger:   logger,
		base:     DefaultBase,
		velocity: DefaultVelocity,
		stop:     make(chan struct{}),
		quit:     make(chan struct{}),
	}
}

// Start puts stdin in raw mode and reads keys on a new goroutine.
func (h *Host) Start() error {
	h.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(h.fd) {
		return errors.New("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	h.oldState = oldState
	if err := setNonblock(h.fd, true); err != nil {
		h.logger.Debug("blocking keyboard reads", "err", err)
	} else {
		h.nonblock = true
	}
	go h.readLoop(newStdinReader(h.fd))
	return nil
}

// Done is closed when the user asks to quit or input ends.
func (h *Host) Done() <-chan struct{} { return h.quit }

// Stop ends the read loop, releases held notes and restores the terminal.
// No key produces an event once Stop has been called.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.held = [128]bool{}
		h.sustain = false
		h.mu.Unlock()
		close(h.stop)
		if h.nonblock {
			<-h.quit
			_ = setNonblock(h.fd, false)
			h.nonblock = false
		}
		h.sink.Enqueue(event.AllNotesOff())
		if h.oldState != nil {
			_ = term.Restore(h.fd, h.oldState)
			h.oldState = nil
		}
	})
}

func (h *Host) readLoop(r io.Reader) {
	var buf [1]byte
	for {
		select {
		case <-h.stop:
			h.quitOnce.Do(func() { close(h.quit) })
			return
		default:
		}
		n, err := r.Read(buf[:])
		if n > 0 && !h.handleKey(buf[0]) {
			break
		}
		if errors.Is(err, errWouldBlock) {
			time.Sleep(pollInterval)
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Warn("keyboard read failed", "err", err)
			}
			break
		}
	}
	h.quitOnce.Do(func() { close(h.quit) })
}

// handleKey applies one key press. It returns false when the key asks to quit
// or the host is stopped.
func (h *Host) handleKey(b byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	switch b {
	case 'q', 'Q', keyEsc, keyCtrlC:
		return false
	case 'z':
		h.shiftOctave(-12)
	case 'x':
		h.shiftOctave(12)
	case ' ':
		h.sustain = !h.sustain
		var v uint32
		if h.sustain {
			v = event.SustainThreshold
		}
		h.sink.Enqueue(event.ControlChange(event.CCSustain, v))
		h.logger.Debug("sustain", "on", h.sustain)
	default:
		for i := 0; i < len(keyRow); i++ {
			if keyRow[i] == b {
				h.toggle(h.base + i)
				break
			}
		}
	}
	return true
}

func (h *Host) toggle(note int) {
	if note < 0 || note > 127 {
		return
	}
	h.held[note] = !h.held[note]
	if h.held[note] {
		h.sink.Enqueue(event.NoteOn(uint8(note), h.velocity))
	} else {
		h.sink.Enqueue(event.NoteOff(uint8(note)))
	}
	h.logger.Debug("key", "note", note, "on", h.held[note])
}

func (h *Host) shiftOctave(delta int) {
	base := h.base + delta
	if base < minBase || base > maxBase {
		return
	}
	h.base = base
	h.logger.Debug("octave", "base", base)
}
