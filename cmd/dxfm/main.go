package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cbegin/dxfm-go"
	"github.com/cbegin/dxfm-go/internal/fm"
	"github.com/cbegin/dxfm-go/internal/keys"
	"github.com/cbegin/dxfm-go/internal/midi"
	"github.com/cbegin/dxfm-go/internal/program"
)

const anyPort = "*"

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		backendName = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		bankPath    = flag.String("bank", "", "YAML program bank (default: built-in factory bank)")
		programName = flag.String("program", "", "program name to load (default: first in bank)")
		list        = flag.Bool("list", false, "list programs in the bank and exit")
		listMIDI    = flag.Bool("list-midi", false, "list MIDI input ports and exit")
		algorithm   = flag.Int("algorithm", 0, "override the program's algorithm (1-32, 0 = keep)")
		volume      = flag.Float64("volume", 0.7, "master volume 0..1")
		midiPort    = flag.String("midi", "", "MIDI input port name prefix, or * for the first port")
		midiChannel = flag.Int("midi-channel", 0, "MIDI receive channel 1-16 (0 = omni)")
		useKeys     = flag.Bool("keys", false, "play from the computer keyboard")
		renderPath  = flag.String("render", "", "render to this WAV file instead of playing live")
		seconds     = flag.Float64("seconds", 3, "length of the -notes demo or the rendered file")
		notesFlag   = flag.String("notes", "60,64,67", "comma separated MIDI notes for the demo chord")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *listMIDI {
		names, err := midi.Inputs()
		if err != nil {
			fatal(logger, "list MIDI inputs", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	bank := program.Factory()
	if *bankPath != "" {
		b, err := program.LoadBank(*bankPath)
		if err != nil {
			fatal(logger, "load bank", err)
		}
		bank = b
	}
	if *list {
		for i, p := range bank.Programs {
			fmt.Printf("%2d  %-12s alg %2d  %s\n", i, p.Name, p.Algorithm, p.Category)
		}
		return
	}
	prog := bank.Programs[0]
	if *programName != "" {
		p, _, ok := bank.Find(*programName)
		if !ok {
			fatal(logger, "select program", fmt.Errorf("no program named %q", *programName))
		}
		prog = p
	}
	if *algorithm != 0 {
		if *algorithm < 1 || *algorithm > fm.NumAlgorithms {
			fatal(logger, "parse flags", fmt.Errorf("-algorithm %d out of range 1..%d", *algorithm, fm.NumAlgorithms))
		}
		prog.Algorithm = *algorithm
	}
	notes, err := parseNotes(*notesFlag)
	if err != nil {
		fatal(logger, "parse flags", err)
	}

	if *renderPath != "" {
		if err := renderFile(logger, *renderPath, *sampleRate, *volume, *seconds, prog, notes); err != nil {
			fatal(logger, "render", err)
		}
		return
	}

	backend, err := parseBackend(*backendName)
	if err != nil {
		fatal(logger, "parse flags", err)
	}
	synth, err := dxfm.NewSynth(*sampleRate,
		dxfm.WithBackend(backend),
		dxfm.WithLogger(logger),
		dxfm.WithBank(bank),
		dxfm.WithMasterVolume(*volume),
	)
	if err != nil {
		fatal(logger, "create synth", err)
	}
	if err := synth.LoadProgram(prog); err != nil {
		fatal(logger, "load program", err)
	}
	if err := synth.Start(); err != nil {
		fatal(logger, "start audio", err)
	}
	defer func() {
		if err := synth.Stop(); err != nil {
			logger.Error("stop audio", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interactive := false
	if *midiPort != "" {
		prefix := *midiPort
		if prefix == anyPort {
			prefix = ""
		}
		tr := &midi.Translator{
			Channel: *midiChannel,
			OnProgramChange: func(p uint8) {
				if int(p) >= synth.Bank().Len() {
					logger.Warn("program change out of range", "program", p)
					return
				}
				if err := synth.SelectProgram(int(p)); err != nil {
					logger.Error("program change", "err", err)
				}
			},
		}
		stop, err := midi.Listen(prefix, tr.Handler(synth.Enqueue), logger)
		if err != nil {
			fatal(logger, "open MIDI input", err)
		}
		defer stop()
		interactive = true
	}

	var keysDone <-chan struct{}
	if *useKeys {
		host := keys.NewHost(synth, logger)
		if err := host.Start(); err != nil {
			fatal(logger, "keyboard", err)
		}
		defer host.Stop()
		keysDone = host.Done()
		fmt.Fprint(os.Stderr, "keys: a w s e d f t g y h u j k play, z/x octave, space sustain, q quits\r\n")
		interactive = true
	}

	if !interactive {
		playDemo(ctx, synth, notes, *seconds)
		return
	}
	select {
	case <-ctx.Done():
	case <-keysDone:
	}
}

func renderFile(logger *slog.Logger, path string, sampleRate int, volume, seconds float64, prog program.Program, notes []uint8) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d must be positive", sampleRate)
	}
	engine := fm.New(sampleRate, fm.DefaultParams())
	engine.SetMasterVolume(volume)
	if err := program.Apply(engine, prog); err != nil {
		return err
	}
	frames := int(seconds * float64(sampleRate))
	release := frames * 3 / 4
	samples := dxfm.RenderOffline(engine, frames, dxfm.DefaultBlockSize, dxfm.Chord(notes, 0xC000, 0, release))
	if err := os.WriteFile(path, dxfm.EncodeWAVFloat32LE(samples, sampleRate, 2), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	st := dxfm.Measure(samples)
	logger.Info("rendered", "file", path, "program", prog.Name, "frames", frames, "peak", st.Peak, "rms", st.RMS)
	return nil
}

func playDemo(ctx context.Context, synth *dxfm.Synth, notes []uint8, seconds float64) {
	for _, n := range notes {
		synth.NoteOn(n, 0xC000)
	}
	hold := time.Duration(seconds * float64(time.Second) * 0.75)
	select {
	case <-ctx.Done():
		return
	case <-time.After(hold):
	}
	for _, n := range notes {
		synth.NoteOff(n)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(seconds*float64(time.Second)) - hold):
	}
}

func parseNotes(s string) ([]uint8, error) {
	var notes []uint8
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid note %q (expected 0..127)", f)
		}
		notes = append(notes, uint8(n))
	}
	return notes, nil
}

func parseBackend(name string) (dxfm.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ebiten":
		return dxfm.BackendEbiten, nil
	case "oto":
		return dxfm.BackendOto, nil
	default:
		return "", fmt.Errorf("invalid -backend %q (expected ebiten|oto)", name)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
