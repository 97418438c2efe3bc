package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process; every OtoPlayer shares it.
type otoContext struct {
	newContext func(*oto.NewContextOptions) (*oto.Context, chan struct{}, error)
	once       sync.Once
	ctx        *oto.Context
	sampleRate int
	err        error
}

var sharedOto = &otoContext{newContext: oto.NewContext}

func (c *otoContext) get(sampleRate int) (*oto.Context, error) {
	c.once.Do(func() {
		c.sampleRate = sampleRate
		ctx, ready, err := c.newContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   20 * time.Millisecond,
		})
		if err != nil {
			c.err = fmt.Errorf("oto context: %w", err)
			return
		}
		<-ready
		c.ctx = ctx
	})
	if c.err != nil {
		return nil, c.err
	}
	if c.sampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", c.sampleRate, sampleRate)
	}
	return c.ctx, nil
}

// OtoPlayer drives oto directly, bypassing ebiten. ebiten also runs on oto,
// so an OtoPlayer cannot be combined with Player in one process.
type OtoPlayer struct {
	mu      sync.Mutex
	player  *oto.Player
	started bool
}

// NewOtoPlayer creates a player on the process-wide oto context, opening the
// context on first use.
func NewOtoPlayer(sampleRate int, source Renderer) (*OtoPlayer, error) {
	ctx, err := sharedOto.get(sampleRate)
	if err != nil {
		return nil, err
	}
	return &OtoPlayer{player: ctx.NewPlayer(NewStreamReader(source))}, nil
}

func (op *OtoPlayer) Play() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

// Stop closes the player; the context stays open for the next OtoPlayer.
func (op *OtoPlayer) Stop() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player == nil {
		return nil
	}
	err := op.player.Close()
	op.player = nil
	op.started = false
	return err
}
