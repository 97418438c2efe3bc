package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Renderer fills deinterleaved stereo buffers. fm.Engine implements it.
type Renderer interface {
	Render(left, right []float32, frameCount int)
}

// Output is a started audio sink.
type Output interface {
	Play()
	Stop() error
}

// StreamReader pulls blocks from a Renderer and serves them as interleaved
// float32 little-endian stereo.
type StreamReader struct {
	mu     sync.Mutex
	source Renderer
	left   []float32
	right  []float32
}

func NewStreamReader(source Renderer) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.left) < frames {
		r.left = make([]float32, frames)
		r.right = make([]float32, frames)
	}
	r.left = r.left[:frames]
	r.right = r.right[:frames]
	r.source.Render(r.left, r.right, frames)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(r.left[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(r.right[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Player plays a Renderer through ebiten's audio context.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source Renderer) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("ebiten player: %w", err)
	}
	// keep latency near one render block
	pl.SetBufferSize(20 * time.Millisecond)
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play() { p.player.Play() }

// Stop pauses and closes the player. The shared context stays open for the
// next Player.
func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
