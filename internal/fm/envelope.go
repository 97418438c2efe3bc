package fm

import "math"

type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay1
	envDecay2
	envSustain
	envRelease
)

const (
	attackDoneRatio = 0.99
	envEpsilon      = 0.001
)

// envelope is a 4-rate/4-level generator. Rates are on the 0-99 scale and map
// to exponential time constants; levels are 0-1.
type envelope struct {
	stage      envStage
	level      float64
	sampleRate float64
	rates      [4]float64
	levels     [4]float64
	coeffs     [4]float64
}

func newEnvelope(sampleRate float64) envelope {
	e := envelope{
		sampleRate: sampleRate,
		rates:      [4]float64{99, 75, 50, 50},
		levels:     [4]float64{1, 0.8, 0.7, 0},
	}
	e.recalc()
	return e
}

func (e *envelope) setSampleRate(sr float64) {
	e.sampleRate = sr
	e.recalc()
}

func (e *envelope) setRates(r0, r1, r2, r3 float64) {
	e.rates = [4]float64{r0, r1, r2, r3}
	e.recalc()
}

func (e *envelope) setLevels(l0, l1, l2, l3 float64) {
	e.levels = [4]float64{l0, l1, l2, l3}
}

func (e *envelope) noteOn() {
	e.level = 0
	e.stage = envAttack
}

// noteOff moves to release unless the note is held by the sustain pedal.
func (e *envelope) noteOff(held bool) {
	if held || e.stage == envIdle {
		return
	}
	e.stage = envRelease
}

func (e *envelope) active() bool { return e.stage != envIdle }

func (e *envelope) process() float64 {
	switch e.stage {
	case envIdle:
		return 0
	case envAttack:
		target := e.levels[0]
		e.level += e.coeffs[0] * (target - e.level)
		if e.level >= target*attackDoneRatio {
			e.level = target
			e.stage = envDecay1
		}
	case envDecay1:
		target := e.levels[1]
		e.level += e.coeffs[1] * (target - e.level)
		if math.Abs(e.level-target) < envEpsilon {
			e.level = target
			e.stage = envDecay2
		}
	case envDecay2:
		target := e.levels[2]
		e.level += e.coeffs[2] * (target - e.level)
		if math.Abs(e.level-target) < envEpsilon {
			e.level = target
			e.stage = envSustain
		}
	case envSustain:
	case envRelease:
		target := e.levels[3]
		e.level += e.coeffs[3] * (target - e.level)
		if math.Abs(e.level-target) < envEpsilon {
			e.level = 0
			e.stage = envIdle
		}
	}
	return e.level
}

func (e *envelope) recalc() {
	for i, r := range e.rates {
		e.coeffs[i] = rateCoeff(r, e.sampleRate)
	}
}

// rateCoeff converts a 0-99 rate into a one-pole smoothing coefficient.
// Time constant is 10s at rate 0 and shrinks by exp(-0.069) per step.
func rateCoeff(rate, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 1
	}
	tau := 10 * math.Exp(-0.069*rate)
	return 1 - math.Exp(-1/(tau*sampleRate))
}
