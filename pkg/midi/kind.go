package midi

// Kind is the message kind carried in the high nibble of a status byte.
type Kind uint8

const (
	NoteOff         Kind = iota // 0x8n
	NoteOn                      // 0x9n
	PolyKeyPressure             // 0xAn
	ControlChange               // 0xBn
	ProgramChange               // 0xCn
	ChannelPressure             // 0xDn
	PitchBend                   // 0xEn
	Extended                    // 0xFn, variable length
	Unknown
)

var kindNames = [...]string{
	NoteOff:         "NoteOff",
	NoteOn:          "NoteOn",
	PolyKeyPressure: "PolyKeyPressure",
	ControlChange:   "ControlChange",
	ProgramChange:   "ProgramChange",
	ChannelPressure: "ChannelPressure",
	PitchBend:       "PitchBend",
	Extended:        "Extended",
	Unknown:         "Unknown",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// dataLength holds the number of data bytes following the status byte of
// each fixed-size kind. Extended is sized by the decoder's sysex capacity.
var dataLength = map[Kind]int{
	NoteOff:         2,
	NoteOn:          2,
	PolyKeyPressure: 2,
	ControlChange:   2,
	ProgramChange:   1,
	ChannelPressure: 1,
	PitchBend:       2,
}

// DataLength returns the fixed payload size of k. It reports false for
// Extended and Unknown, whose length is not fixed.
func (k Kind) DataLength() (int, bool) {
	n, ok := dataLength[k]
	return n, ok
}

// kindOf splits a status byte into its kind and channel. Data bytes wrap
// below NoteOff and fail the range check.
func kindOf(status byte) (Kind, uint8, bool) {
	k := Kind(status>>4) - 8
	if k > Extended {
		return Unknown, 0, false
	}
	return k, status & 0x0F, true
}
