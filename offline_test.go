package dxfm

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"

	"github.com/cbegin/dxfm-go/internal/event"
	"github.com/cbegin/dxfm-go/internal/fm"
	"github.com/cbegin/dxfm-go/internal/program"
)

func renderProgramWAV(t *testing.T, name string) []byte {
	t.Helper()
	e := fm.New(48000, fm.DefaultParams())
	p, _, ok := program.Factory().Find(name)
	if !ok {
		t.Fatalf("missing program %q", name)
	}
	if err := program.Apply(e, p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	schedule := Chord([]uint8{60, 64, 67}, 50000, 0, 24000)
	samples := RenderOffline(e, 48000, DefaultBlockSize, schedule)
	return EncodeWAVFloat32LE(samples, 48000, 2)
}

func TestOfflineRenderDeterministic(t *testing.T) {
	for _, name := range []string{"E.PIANO 1", "BASS 1", "BRASS 1"} {
		t.Run(name, func(t *testing.T) {
			a := sha256.Sum256(renderProgramWAV(t, name))
			b := sha256.Sum256(renderProgramWAV(t, name))
			if a != b {
				t.Fatalf("render not deterministic\nfirst:  %s\nsecond: %s", hex.EncodeToString(a[:]), hex.EncodeToString(b[:]))
			}
		})
	}
}

func TestOfflineRenderSchedule(t *testing.T) {
	e := fm.New(48000, fm.DefaultParams())
	schedule := []ScheduledEvent{
		{Frame: 1000, Event: event.NoteOn(69, 65535)},
	}
	out := RenderOffline(e, 4096, 512, schedule)
	if len(out) != 8192 {
		t.Fatalf("len = %d", len(out))
	}
	// frame 1000 falls in the block starting at 512, so the note begins at 1024
	if m := Measure(out[:1024*2]); m.Peak != 0 {
		t.Fatalf("output before the event boundary: %v", m.Peak)
	}
	if m := Measure(out[1024*2:]); m.Peak == 0 {
		t.Fatalf("no output after the event")
	}
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("channels differ at frame %d", i/2)
		}
	}
}

func TestOfflineRenderUnsortedSchedule(t *testing.T) {
	e := fm.New(48000, fm.DefaultParams())
	schedule := []ScheduledEvent{
		{Frame: 2048, Event: event.NoteOff(60)},
		{Frame: 0, Event: event.NoteOn(60, 65535)},
	}
	RenderOffline(e, 4096, 256, schedule)
	if schedule[0].Frame != 2048 {
		t.Fatalf("schedule was reordered in place")
	}
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("voice should still be releasing")
	}
}

func TestOfflineRenderEmpty(t *testing.T) {
	e := fm.New(48000, fm.DefaultParams())
	if out := RenderOffline(e, 0, 512, nil); out != nil {
		t.Fatalf("expected nil, got %d samples", len(out))
	}
	out := RenderOffline(e, 100, 0, nil)
	if len(out) != 200 {
		t.Fatalf("len = %d", len(out))
	}
}

func TestMeasure(t *testing.T) {
	m := Measure([]float32{0.5, -1, 0.5, 0})
	if m.Peak != 1 {
		t.Fatalf("peak = %v", m.Peak)
	}
	if want := float32(math.Sqrt(1.5 / 4)); math.Abs(float64(m.RMS-want)) > 1e-6 {
		t.Fatalf("rms = %v want %v", m.RMS, want)
	}
	if (Measure(nil) != Stats{}) {
		t.Fatalf("empty stats not zero")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.25, -0.25, 1, -1}, 44100, 2)
	if len(wav) != 44+16 {
		t.Fatalf("len = %d", len(wav))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) || !bytes.Equal(wav[36:40], []byte("data")) {
		t.Fatalf("bad chunk ids")
	}
	for _, tc := range []struct {
		off  int
		size int
		want uint32
	}{
		{4, 4, 36 + 16},
		{20, 2, 3},
		{22, 2, 2},
		{24, 4, 44100},
		{28, 4, 44100 * 8},
		{32, 2, 8},
		{34, 2, 32},
		{40, 4, 16},
	} {
		var got uint32
		if tc.size == 2 {
			got = uint32(binary.LittleEndian.Uint16(wav[tc.off:]))
		} else {
			got = binary.LittleEndian.Uint32(wav[tc.off:])
		}
		if got != tc.want {
			t.Fatalf("offset %d = %d want %d", tc.off, got, tc.want)
		}
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(wav[44+8:])); got != 1 {
		t.Fatalf("third sample = %v", got)
	}
}
