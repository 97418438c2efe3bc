package fm

import (
	"math"
	"testing"
)

func TestVoiceNoteOn(t *testing.T) {
	v := newVoice(48000)
	v.noteOn(69, 65535)
	if !v.active || v.sustained {
		t.Fatalf("active=%v sustained=%v", v.active, v.sustained)
	}
	if v.velocityScale != 1 {
		t.Fatalf("velocityScale = %v", v.velocityScale)
	}
	for i := range v.ops {
		if v.ops[i].baseFreq != 440 {
			t.Fatalf("op %d base frequency %v", i, v.ops[i].baseFreq)
		}
	}
	v.noteOn(200, 32768)
	if v.note != 200&0x7F {
		t.Fatalf("note not masked: %d", v.note)
	}
	if math.Abs(v.velocityScale-32768.0/65535) > 1e-12 {
		t.Fatalf("velocityScale = %v", v.velocityScale)
	}
}

func TestVoiceAppliesStoredBend(t *testing.T) {
	v := newVoice(48000)
	v.pitchBendFactor = 2
	v.noteOn(69, 65535)
	if got := v.ops[0].frequency(); math.Abs(got-880) > 1e-9 {
		t.Fatalf("bent frequency %v want 880", got)
	}
	v.applyPitchBend(1)
	if got := v.ops[0].frequency(); math.Abs(got-440) > 1e-9 {
		t.Fatalf("unbent frequency %v want 440", got)
	}
}

func TestVoiceInactiveIsSilent(t *testing.T) {
	v := newVoice(48000)
	if got := v.process(); got != 0 {
		t.Fatalf("inactive voice output %v", got)
	}
}

func TestVoiceSustainLifecycle(t *testing.T) {
	v := newVoice(48000)
	v.noteOn(60, 65535)
	for i := 0; i < 1000; i++ {
		v.process()
	}
	v.noteOff(true)
	if !v.sustained {
		t.Fatalf("held noteOff should mark voice sustained")
	}
	for i := 0; i < 48000; i++ {
		v.process()
		v.checkActive()
	}
	if !v.active {
		t.Fatalf("sustained voice went inactive")
	}
	v.releaseSustain()
	if v.sustained {
		t.Fatalf("releaseSustain left voice sustained")
	}
	for i := 0; i < 48000*4 && v.active; i++ {
		v.process()
		v.checkActive()
	}
	if v.active {
		t.Fatalf("voice still active after release")
	}
}

func TestVoiceReleaseSustainIgnoresUnheld(t *testing.T) {
	v := newVoice(48000)
	v.noteOn(60, 65535)
	v.releaseSustain()
	if v.ops[0].env.stage != envAttack {
		t.Fatalf("releaseSustain released a note that was not held")
	}
}

func TestVoiceAllAlgorithmsSound(t *testing.T) {
	for alg := 0; alg < NumAlgorithms; alg++ {
		v := newVoice(48000)
		v.algorithm = alg
		v.noteOn(60, 65535)
		var peak float64
		for i := 0; i < 4800; i++ {
			if a := math.Abs(v.process()); a > peak {
				peak = a
			}
		}
		if peak < 0.01 {
			t.Fatalf("algorithm %d silent, peak=%v", alg+1, peak)
		}
		if limit := float64(routes[alg].CarrierCount()) * routes[alg].Normalization; peak > limit+1e-9 {
			t.Fatalf("algorithm %d peak %v exceeds %v", alg+1, peak, limit)
		}
	}
}
