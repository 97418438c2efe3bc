package fm

import (
	"math"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/dxfm-go/internal/event"
)

// MaxVoices is the size of the voice pool.
const MaxVoices = 16

const (
	voiceMixScale = 3.0
	pitchBendSemi = 2.0
	softClipLimit = 3.0
)

type Params struct {
	MasterVolume  float64
	Algorithm     int // 0-31
	QueueCapacity int
}

func DefaultParams() Params {
	return Params{
		MasterVolume:  0.7,
		Algorithm:     0,
		QueueCapacity: event.DefaultCapacity,
	}
}

// Engine is a 16-voice, 6-operator FM synthesizer. Control goroutines send
// note and controller events through Enqueue and change the shared program
// through the setters; a single audio goroutine calls Render.
type Engine struct {
	mu           sync.Mutex
	sampleRate   float64
	voices       [MaxVoices]voice
	masterVolume float64
	algorithm    int
	sustainPedal bool
	pitchBend    float64
	queue        *event.Queue
	applyFn      func(event.Event)
}

func New(sampleRate int, params Params) *Engine {
	e := &Engine{
		sampleRate:   float64(sampleRate),
		masterVolume: clamp(params.MasterVolume, 0, 1),
		algorithm:    clampInt(params.Algorithm, 0, NumAlgorithms-1),
		pitchBend:    1,
		queue:        event.NewQueue(params.QueueCapacity),
	}
	for i := range e.voices {
		e.voices[i] = newVoice(e.sampleRate)
		e.voices[i].algorithm = e.algorithm
	}
	e.applyFn = e.apply
	return e
}

// Enqueue hands an event to the next Render call. It reports false when the
// queue is full and the event was dropped.
func (e *Engine) Enqueue(ev event.Event) bool {
	return e.queue.Enqueue(ev)
}

func (e *Engine) Queue() *event.Queue { return e.queue }

func (e *Engine) SetSampleRate(sampleRate int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleRate = float64(sampleRate)
	for i := range e.voices {
		e.voices[i].setSampleRate(e.sampleRate)
	}
}

// SetAlgorithm selects the operator routing (0-31). Out of range values are clamped.
func (e *Engine) SetAlgorithm(alg int) {
	alg = clampInt(alg, 0, NumAlgorithms-1)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.algorithm = alg
	for i := range e.voices {
		e.voices[i].algorithm = alg
	}
}

func (e *Engine) SetMasterVolume(vol float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.masterVolume = clamp(vol, 0, 1)
}

// forOperator runs fn on operator slot op of every voice. Invalid slots are ignored.
func (e *Engine) forOperator(op int, fn func(*operator)) {
	if op < 0 || op >= NumOperators {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.voices {
		fn(&e.voices[i].ops[op])
	}
}

func (e *Engine) SetOperatorLevel(op int, level float64) {
	e.forOperator(op, func(o *operator) { o.level = level })
}

func (e *Engine) SetOperatorRatio(op int, ratio float64) {
	e.forOperator(op, func(o *operator) { o.ratio = ratio })
}

func (e *Engine) SetOperatorDetune(op int, cents float64) {
	e.forOperator(op, func(o *operator) { o.setDetuneCents(cents) })
}

// SetOperatorFeedback sets self-feedback on one slot. Any slot may carry it.
func (e *Engine) SetOperatorFeedback(op int, fb float64) {
	e.forOperator(op, func(o *operator) { o.feedback = fb })
}

// SetOperatorEnvelopeRates sets R1-R4 on the 0-99 scale.
func (e *Engine) SetOperatorEnvelopeRates(op int, r1, r2, r3, r4 float64) {
	e.forOperator(op, func(o *operator) { o.env.setRates(r1, r2, r3, r4) })
}

// SetOperatorEnvelopeLevels sets L1-L4 in 0-1.
func (e *Engine) SetOperatorEnvelopeLevels(op int, l1, l2, l3, l4 float64) {
	e.forOperator(op, func(o *operator) { o.env.setLevels(l1, l2, l3, l4) })
}

// Render drains pending events, then writes frameCount identical samples to
// left and right. frameCount is limited to the shorter buffer. Events are
// drained even when no frames are rendered.
func (e *Engine) Render(left, right []float32, frameCount int) {
	if frameCount > len(left) {
		frameCount = len(left)
	}
	if frameCount > len(right) {
		frameCount = len(right)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue.Drain(e.applyFn)
	if frameCount <= 0 {
		return
	}

	out := left[:frameCount]
	for f := range out {
		var sum float64
		active := 0
		for i := range e.voices {
			v := &e.voices[i]
			v.checkActive()
			if v.active {
				sum += v.process()
				active++
			}
		}
		if active > 0 {
			sum /= math.Sqrt(float64(active)) * voiceMixScale
		}
		out[f] = float32(sum)
	}
	vek32.MulNumber_Inplace(out, float32(e.masterVolume))
	for f, x := range out {
		out[f] = softClip(x)
	}
	copy(right[:frameCount], out)
}

func (e *Engine) apply(ev event.Event) {
	switch ev.Kind {
	case event.KindNoteOn:
		if ev.Data2 == 0 {
			e.noteOff(ev.Data1)
			return
		}
		e.noteOn(ev.Data1, uint16(min(ev.Data2, 0xFFFF)))
	case event.KindNoteOff:
		e.noteOff(ev.Data1)
	case event.KindControlChange:
		e.controlChange(ev.Data1, ev.Data2)
	case event.KindPitchBend:
		e.setPitchBend(ev.Data2)
	}
}

func (e *Engine) noteOn(note uint8, velocity uint16) {
	for i := range e.voices {
		v := &e.voices[i]
		v.checkActive()
		if v.active {
			continue
		}
		v.algorithm = e.algorithm
		v.pitchBendFactor = e.pitchBend
		v.noteOn(note, velocity)
		return
	}
	// pool exhausted: the note is dropped
}

func (e *Engine) noteOff(note uint8) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.note == note {
			v.noteOff(e.sustainPedal)
		}
	}
}

func (e *Engine) controlChange(cc uint8, value uint32) {
	switch cc {
	case event.CCSustain:
		e.sustainPedal = value >= event.SustainThreshold
		if !e.sustainPedal {
			for i := range e.voices {
				e.voices[i].releaseSustain()
			}
		}
	case event.CCAllNotesOff:
		e.sustainPedal = false
		for i := range e.voices {
			v := &e.voices[i]
			v.sustained = false
			if v.active {
				v.noteOff(false)
			}
		}
	}
}

func (e *Engine) setPitchBend(value uint32) {
	e.pitchBend = pitchBendFactor(value)
	for i := range e.voices {
		if e.voices[i].active {
			e.voices[i].applyPitchBend(e.pitchBend)
		}
	}
}

// pitchBendFactor maps a 32-bit bend centred at 0x80000000 to a frequency
// multiplier over +/-2 semitones.
func pitchBendFactor(value uint32) float64 {
	norm := (float64(value) - float64(event.PitchBendCenter)) / float64(event.PitchBendCenter)
	return math.Pow(2, norm*pitchBendSemi/12)
}

// softClip leaves |x| <= 1 untouched and bends larger values toward +/-1.
func softClip(x float32) float32 {
	if x <= 1 && x >= -1 {
		return x
	}
	if x > softClipLimit {
		x = softClipLimit
	} else if x < -softClipLimit {
		x = -softClipLimit
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

func (e *Engine) ActiveVoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) Algorithm() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.algorithm
}

func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.sampleRate)
}

func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.masterVolume
}

func midiToFreq(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
