package fm

import "math"

const twoPi = math.Pi * 2

// operator is a sine oscillator with its own envelope and optional self-feedback.
type operator struct {
	phase      float64
	phaseInc   float64
	sampleRate float64
	baseFreq   float64
	ratio      float64
	detune     float64 // multiplicative, from cents
	bend       float64
	level      float64
	feedback   float64
	prev1      float64
	prev2      float64
	env        envelope
}

func newOperator(sampleRate float64) operator {
	return operator{
		sampleRate: sampleRate,
		ratio:      1,
		detune:     1,
		bend:       1,
		level:      1,
		env:        newEnvelope(sampleRate),
	}
}

func (op *operator) setSampleRate(sr float64) {
	op.sampleRate = sr
	op.env.setSampleRate(sr)
	op.recalc()
}

func (op *operator) setDetuneCents(cents float64) {
	op.detune = math.Pow(2, cents/1200)
}

func (op *operator) noteOn(baseFreq float64) {
	op.baseFreq = baseFreq
	op.phase = 0
	op.prev1 = 0
	op.prev2 = 0
	op.recalc()
	op.env.noteOn()
}

// applyPitchBend retunes the oscillator without touching its phase.
func (op *operator) applyPitchBend(factor float64) {
	op.bend = factor
	op.recalc()
}

func (op *operator) noteOff(held bool) {
	op.env.noteOff(held)
}

func (op *operator) process(mod float64) float64 {
	envLevel := op.env.process()
	fbMod := op.feedback * (op.prev1 + op.prev2) * 0.5
	out := math.Sin(twoPi*(op.phase+mod+fbMod)) * envLevel * op.level
	op.phase += op.phaseInc
	if op.phase >= 1 {
		op.phase -= math.Floor(op.phase)
	}
	op.prev2 = op.prev1
	op.prev1 = out
	return out
}

func (op *operator) frequency() float64 {
	return op.baseFreq * op.ratio * op.detune * op.bend
}

func (op *operator) recalc() {
	if op.sampleRate <= 0 {
		op.phaseInc = 0
		return
	}
	op.phaseInc = op.frequency() / op.sampleRate
}
