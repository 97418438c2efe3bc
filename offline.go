package dxfm

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/dxfm-go/internal/event"
	"github.com/cbegin/dxfm-go/internal/fm"
)

// DefaultBlockSize is the render block used offline; events land on block boundaries.
const DefaultBlockSize = 512

// ScheduledEvent is an event due at an absolute frame.
type ScheduledEvent struct {
	Frame int
	Event event.Event
}

// RenderOffline renders frames of interleaved stereo from engine. Each event
// is applied at the first block boundary at or after its frame.
func RenderOffline(engine *fm.Engine, frames, blockSize int, schedule []ScheduledEvent) []float32 {
	if frames <= 0 {
		return nil
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	pending := make([]ScheduledEvent, len(schedule))
	copy(pending, schedule)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Frame < pending[j].Frame })

	out := make([]float32, frames*2)
	left := make([]float32, blockSize)
	right := make([]float32, blockSize)
	next := 0
	for pos := 0; pos < frames; pos += blockSize {
		for next < len(pending) && pending[next].Frame <= pos {
			engine.Enqueue(pending[next].Event)
			next++
		}
		n := min(blockSize, frames-pos)
		engine.Render(left, right, n)
		for i := 0; i < n; i++ {
			out[(pos+i)*2] = left[i]
			out[(pos+i)*2+1] = right[i]
		}
	}
	return out
}

// Chord schedules notes together at start and releases them at end.
func Chord(notes []uint8, velocity uint16, start, end int) []ScheduledEvent {
	s := make([]ScheduledEvent, 0, len(notes)*2)
	for _, n := range notes {
		s = append(s, ScheduledEvent{Frame: start, Event: event.NoteOn(n, velocity)})
	}
	for _, n := range notes {
		s = append(s, ScheduledEvent{Frame: end, Event: event.NoteOff(n)})
	}
	return s
}

// Stats summarises a rendered buffer.
type Stats struct {
	Peak float32
	RMS  float32
}

func Measure(samples []float32) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	abs := vek32.Abs(samples)
	return Stats{
		Peak: vek32.Max(abs),
		RMS:  float32(math.Sqrt(float64(vek32.Dot(samples, samples)) / float64(len(samples)))),
	}
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
