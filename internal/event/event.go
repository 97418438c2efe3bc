package event

// Kind identifies the type of a channel event. Values match the MIDI status nibble.
type Kind uint8

const (
	KindNoteOff       Kind = 0x80
	KindNoteOn        Kind = 0x90
	KindControlChange Kind = 0xB0
	KindPitchBend     Kind = 0xE0
)

const (
	CCSustain     = 64
	CCAllNotesOff = 123

	// PitchBendCenter is the 32-bit bend value meaning "no bend".
	PitchBendCenter uint32 = 0x8000_0000
	// SustainThreshold is the lowest CC64 value that counts as pedal down.
	SustainThreshold uint32 = 0x4000_0000
)

// Event is a MIDI-like channel event with an extended-resolution payload.
// Data1 carries the note or controller number, Data2 the 16-bit velocity,
// 32-bit controller value or 32-bit pitch bend.
type Event struct {
	Kind  Kind
	Data1 uint8
	Data2 uint32
}

func NoteOn(note uint8, velocity uint16) Event {
	return Event{Kind: KindNoteOn, Data1: note & 0x7F, Data2: uint32(velocity)}
}

func NoteOff(note uint8) Event {
	return Event{Kind: KindNoteOff, Data1: note & 0x7F}
}

func ControlChange(controller uint8, value uint32) Event {
	return Event{Kind: KindControlChange, Data1: controller & 0x7F, Data2: value}
}

func PitchBend(value uint32) Event {
	return Event{Kind: KindPitchBend, Data2: value}
}

// AllNotesOff is the event used to cancel playback.
func AllNotesOff() Event {
	return ControlChange(CCAllNotesOff, 0)
}

func (k Kind) String() string {
	switch k {
	case KindNoteOff:
		return "note-off"
	case KindNoteOn:
		return "note-on"
	case KindControlChange:
		return "control-change"
	case KindPitchBend:
		return "pitch-bend"
	default:
		return "unknown"
	}
}
