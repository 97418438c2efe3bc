package fm

// voice is one sounding note: six operators wired by the current algorithm.
type voice struct {
	ops             [NumOperators]operator
	note            uint8
	velocityScale   float64
	active          bool
	sustained       bool
	algorithm       int
	pitchBendFactor float64
}

func newVoice(sampleRate float64) voice {
	v := voice{pitchBendFactor: 1}
	for i := range v.ops {
		v.ops[i] = newOperator(sampleRate)
	}
	return v
}

func (v *voice) setSampleRate(sr float64) {
	for i := range v.ops {
		v.ops[i].setSampleRate(sr)
	}
}

func (v *voice) noteOn(note uint8, velocity uint16) {
	v.note = note & 0x7F
	v.velocityScale = clamp(float64(velocity)/65535.0, 0, 1)
	v.active = true
	v.sustained = false
	freq := midiToFreq(int(v.note))
	for i := range v.ops {
		v.ops[i].noteOn(freq)
		v.ops[i].applyPitchBend(v.pitchBendFactor)
	}
}

func (v *voice) noteOff(held bool) {
	v.sustained = held
	for i := range v.ops {
		v.ops[i].noteOff(held)
	}
}

// releaseSustain starts the deferred release of a note held by the pedal.
func (v *voice) releaseSustain() {
	if !v.sustained {
		return
	}
	v.sustained = false
	for i := range v.ops {
		v.ops[i].noteOff(false)
	}
}

func (v *voice) applyPitchBend(factor float64) {
	v.pitchBendFactor = factor
	for i := range v.ops {
		v.ops[i].applyPitchBend(factor)
	}
}

func (v *voice) checkActive() {
	if !v.active {
		return
	}
	for i := range v.ops {
		if v.ops[i].env.active() {
			return
		}
	}
	v.active = false
	v.sustained = false
}

func (v *voice) process() float64 {
	if !v.active {
		return 0
	}
	r := &routes[v.algorithm]
	var out [NumOperators]float64
	for i := NumOperators - 1; i >= 0; i-- {
		var m float64
		for _, src := range r.Ops[i].Sources {
			if src == noSource {
				break
			}
			m += out[src]
		}
		out[i] = v.ops[i].process(m)
	}
	var sum float64
	for i := range out {
		if r.Ops[i].Carrier {
			sum += out[i]
		}
	}
	return sum * r.Normalization * v.velocityScale
}
