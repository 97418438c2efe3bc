// Package dxfm is a polyphonic six-operator FM synthesizer with live audio
// output, MIDI and keyboard control, and offline rendering.
package dxfm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cbegin/dxfm-go/internal/audio"
	"github.com/cbegin/dxfm-go/internal/event"
	"github.com/cbegin/dxfm-go/internal/fm"
	"github.com/cbegin/dxfm-go/internal/program"
)

type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
	BackendNone   Backend = "none"
)

type Option func(*config)

type config struct {
	backend Backend
	logger  *slog.Logger
	params  fm.Params
	bank    *program.Bank
}

func defaultConfig() config {
	return config{
		backend: BackendEbiten,
		logger:  slog.Default(),
		params:  fm.DefaultParams(),
	}
}

func WithBackend(b Backend) Option {
	return func(cfg *config) {
		cfg.backend = b
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithQueueCapacity sizes the event queue between control goroutines and audio.
func WithQueueCapacity(n int) Option {
	return func(cfg *config) {
		cfg.params.QueueCapacity = n
	}
}

func WithMasterVolume(v float64) Option {
	return func(cfg *config) {
		cfg.params.MasterVolume = v
	}
}

// WithBank replaces the built-in factory bank.
func WithBank(b *program.Bank) Option {
	return func(cfg *config) {
		cfg.bank = b
	}
}

// Synth owns an engine and its audio output. Note and controller methods
// only enqueue events and are safe from any goroutine.
type Synth struct {
	mu         sync.Mutex
	sampleRate int
	engine     *fm.Engine
	backend    Backend
	logger     *slog.Logger
	bank       *program.Bank
	current    int
	output     audio.Output
	notes      [128]bool
}

func NewSynth(sampleRate int, opts ...Option) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	switch cfg.backend {
	case BackendEbiten, BackendOto, BackendNone:
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.backend)
	}
	if cfg.bank == nil {
		cfg.bank = program.Factory()
	}
	if cfg.bank.Len() == 0 {
		return nil, errors.New("program bank is empty")
	}
	return &Synth{
		sampleRate: sampleRate,
		engine:     fm.New(sampleRate, cfg.params),
		backend:    cfg.backend,
		logger:     cfg.logger,
		bank:       cfg.bank,
		current:    -1,
	}, nil
}

func (s *Synth) SampleRate() int { return s.sampleRate }

func (s *Synth) Engine() *fm.Engine { return s.engine }

func (s *Synth) Bank() *program.Bank { return s.bank }

// Enqueue forwards ev to the engine and tracks which notes are down. It
// reports false when the queue was full, leaving the tracked notes unchanged.
func (s *Synth) Enqueue(ev event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.Enqueue(ev) {
		s.logger.Debug("event dropped, queue full", "kind", ev.Kind, "data1", ev.Data1)
		return false
	}
	switch {
	case ev.Kind == event.KindNoteOn:
		s.notes[ev.Data1&0x7F] = ev.Data2 != 0
	case ev.Kind == event.KindNoteOff:
		s.notes[ev.Data1&0x7F] = false
	case ev.Kind == event.KindControlChange && ev.Data1 == event.CCAllNotesOff:
		s.notes = [128]bool{}
	}
	return true
}

func (s *Synth) NoteOn(note uint8, velocity uint16) bool {
	return s.Enqueue(event.NoteOn(note, velocity))
}

func (s *Synth) NoteOff(note uint8) bool {
	return s.Enqueue(event.NoteOff(note))
}

func (s *Synth) ControlChange(controller uint8, value uint32) bool {
	return s.Enqueue(event.ControlChange(controller, value))
}

func (s *Synth) PitchBend(value uint32) bool {
	return s.Enqueue(event.PitchBend(value))
}

// AllNotesOff sends note-off for every tracked note, then all-notes-off.
func (s *Synth) AllNotesOff() {
	s.mu.Lock()
	notes := s.notes
	s.mu.Unlock()
	for n, on := range notes {
		if on {
			s.NoteOff(uint8(n))
		}
	}
	s.Enqueue(event.AllNotesOff())
}

// ActiveNotes lists the notes currently held down, lowest first.
func (s *Synth) ActiveNotes() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint8
	for n, on := range s.notes {
		if on {
			out = append(out, uint8(n))
		}
	}
	return out
}

func (s *Synth) SetAlgorithm(alg int)               { s.engine.SetAlgorithm(alg) }
func (s *Synth) Algorithm() int                     { return s.engine.Algorithm() }
func (s *Synth) SetMasterVolume(v float64)          { s.engine.SetMasterVolume(v) }
func (s *Synth) MasterVolume() float64              { return s.engine.MasterVolume() }
func (s *Synth) ActiveVoiceCount() int              { return s.engine.ActiveVoiceCount() }
func (s *Synth) SetOperatorLevel(op int, v float64) { s.engine.SetOperatorLevel(op, v) }
func (s *Synth) SetOperatorRatio(op int, v float64) { s.engine.SetOperatorRatio(op, v) }
func (s *Synth) SetOperatorDetune(op int, cents float64) {
	s.engine.SetOperatorDetune(op, cents)
}
func (s *Synth) SetOperatorFeedback(op int, v float64) { s.engine.SetOperatorFeedback(op, v) }
func (s *Synth) SetOperatorEnvelopeRates(op int, r1, r2, r3, r4 float64) {
	s.engine.SetOperatorEnvelopeRates(op, r1, r2, r3, r4)
}
func (s *Synth) SetOperatorEnvelopeLevels(op int, l1, l2, l3, l4 float64) {
	s.engine.SetOperatorEnvelopeLevels(op, l1, l2, l3, l4)
}

// LoadProgram silences the synth and applies p. p need not be in the bank.
func (s *Synth) LoadProgram(p program.Program) error {
	s.mu.Lock()
	s.notes = [128]bool{}
	s.mu.Unlock()
	if err := program.Apply(s.engine, p); err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	s.logger.Info("program loaded", "name", p.Name, "algorithm", p.Algorithm)
	return nil
}

// SelectProgram loads the bank program at index.
func (s *Synth) SelectProgram(index int) error {
	if index < 0 || index >= s.bank.Len() {
		return fmt.Errorf("program %d out of range 0..%d", index, s.bank.Len()-1)
	}
	if err := s.LoadProgram(s.bank.Programs[index]); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = index
	s.mu.Unlock()
	return nil
}

func (s *Synth) SelectProgramByName(name string) error {
	_, i, ok := s.bank.Find(name)
	if !ok {
		return fmt.Errorf("no program named %q", name)
	}
	return s.SelectProgram(i)
}

// CurrentProgram returns the index of the last selected bank program, or -1.
func (s *Synth) CurrentProgram() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Render fills left and right directly, for callers driving their own output.
func (s *Synth) Render(left, right []float32, frameCount int) {
	s.engine.Render(left, right, frameCount)
}

// Start opens the configured backend and begins playback.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output != nil {
		return nil
	}
	var (
		out audio.Output
		err error
	)
	switch s.backend {
	case BackendEbiten:
		out, err = audio.NewPlayer(s.sampleRate, s.engine)
	case BackendOto:
		out, err = audio.NewOtoPlayer(s.sampleRate, s.engine)
	case BackendNone:
		return nil
	}
	if err != nil {
		return fmt.Errorf("start %s audio: %w", s.backend, err)
	}
	out.Play()
	s.output = out
	s.logger.Info("audio started", "backend", s.backend, "sample_rate", s.sampleRate)
	return nil
}

// Stop silences every voice through the event queue and closes the output.
func (s *Synth) Stop() error {
	s.AllNotesOff()
	s.mu.Lock()
	out := s.output
	s.output = nil
	s.mu.Unlock()
	if out == nil {
		return nil
	}
	if err := out.Stop(); err != nil {
		return fmt.Errorf("stop audio: %w", err)
	}
	s.logger.Info("audio stopped", "backend", s.backend)
	return nil
}
