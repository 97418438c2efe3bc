// Package midi turns MIDI 1.0 messages into the engine's 32-bit events.
package midi

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/dxfm-go/internal/event"
)

// Translator converts MIDI 1.0 channel messages. Channel 0 accepts every
// channel; 1-16 accepts only that channel.
type Translator struct {
	Channel         int
	OnProgramChange func(program uint8)
}

// Velocity upscales a 7-bit velocity to 16 bits.
func Velocity(v uint8) uint16 { return uint16(v&0x7F) << 9 }

// ControllerValue upscales a 7-bit controller value to 32 bits.
func ControllerValue(v uint8) uint32 { return uint32(v&0x7F) << 25 }

// PitchBendValue upscales a 14-bit bend (centre 8192) to 32 bits.
func PitchBendValue(raw uint16) uint32 { return uint32(raw&0x3FFF) << 18 }

// Translate returns the event for msg. ok is false for messages the engine
// does not consume, for other channels, and for program changes.
func (t *Translator) Translate(msg midi.Message) (ev event.Event, ok bool) {
	var ch, key, vel, cc, val, prog uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !t.accept(ch) {
			return ev, false
		}
		return event.NoteOn(key, Velocity(vel)), true
	case msg.GetNoteEnd(&ch, &key):
		if !t.accept(ch) {
			return ev, false
		}
		return event.NoteOff(key), true
	case msg.GetControlChange(&ch, &cc, &val):
		if !t.accept(ch) {
			return ev, false
		}
		return event.ControlChange(cc, ControllerValue(val)), true
	case msg.GetPitchBend(&ch, &rel, &abs):
		if !t.accept(ch) {
			return ev, false
		}
		return event.PitchBend(PitchBendValue(abs)), true
	case msg.GetProgramChange(&ch, &prog):
		if t.accept(ch) && t.OnProgramChange != nil {
			t.OnProgramChange(prog)
		}
	}
	return ev, false
}

// Handler returns a listener callback that forwards translated events to sink.
func (t *Translator) Handler(sink func(event.Event) bool) func(midi.Message, int32) {
	return func(msg midi.Message, _ int32) {
		if ev, ok := t.Translate(msg); ok {
			sink(ev)
		}
	}
}

func (t *Translator) accept(ch uint8) bool {
	return t.Channel <= 0 || int(ch)+1 == t.Channel
}
