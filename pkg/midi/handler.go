package midi

// Handler receives one call per completed message.
//
// Calls happen on the goroutine running Feed or Drain. The payload passed to
// SysEx aliases the decoder's buffer and must be copied if kept.
type Handler interface {
	NoteOn(channel, note, velocity uint8)
	NoteOff(channel, note uint8)
	ControlChange(channel, controller, value uint8)
	PitchBend(channel uint8, value int16)
	ProgramChange(channel, program uint8)
	SysEx(payload []byte)
}

// HandlerFuncs adapts a set of optional functions to Handler.
// Messages whose function is nil are ignored.
type HandlerFuncs struct {
	OnNoteOn        func(channel, note, velocity uint8)
	OnNoteOff       func(channel, note uint8)
	OnControlChange func(channel, controller, value uint8)
	OnPitchBend     func(channel uint8, value int16)
	OnProgramChange func(channel, program uint8)
	OnSysEx         func(payload []byte)
}

func (h HandlerFuncs) NoteOn(channel, note, velocity uint8) {
	if h.OnNoteOn != nil {
		h.OnNoteOn(channel, note, velocity)
	}
}

func (h HandlerFuncs) NoteOff(channel, note uint8) {
	if h.OnNoteOff != nil {
		h.OnNoteOff(channel, note)
	}
}

func (h HandlerFuncs) ControlChange(channel, controller, value uint8) {
	if h.OnControlChange != nil {
		h.OnControlChange(channel, controller, value)
	}
}

func (h HandlerFuncs) PitchBend(channel uint8, value int16) {
	if h.OnPitchBend != nil {
		h.OnPitchBend(channel, value)
	}
}

func (h HandlerFuncs) ProgramChange(channel, program uint8) {
	if h.OnProgramChange != nil {
		h.OnProgramChange(channel, program)
	}
}

func (h HandlerFuncs) SysEx(payload []byte) {
	if h.OnSysEx != nil {
		h.OnSysEx(payload)
	}
}
