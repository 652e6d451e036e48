package main

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// eventLogger writes one entry per decoded message.
type eventLogger struct {
	log *zap.Logger
}

func newEventLogger(l *zap.Logger) *eventLogger {
	return &eventLogger{log: l.Named("event")}
}

func (e *eventLogger) NoteOn(channel, note, velocity uint8) {
	e.log.Info("note on", zap.Uint8("channel", channel), zap.Uint8("note", note), zap.Uint8("velocity", velocity))
}

func (e *eventLogger) NoteOff(channel, note uint8) {
	e.log.Info("note off", zap.Uint8("channel", channel), zap.Uint8("note", note))
}

func (e *eventLogger) ControlChange(channel, controller, value uint8) {
	e.log.Info("control change", zap.Uint8("channel", channel), zap.Uint8("controller", controller), zap.Uint8("value", value))
}

func (e *eventLogger) PitchBend(channel uint8, value int16) {
	e.log.Info("pitch bend", zap.Uint8("channel", channel), zap.Int16("value", value))
}

func (e *eventLogger) ProgramChange(channel, program uint8) {
	e.log.Info("program change", zap.Uint8("channel", channel), zap.Uint8("program", program))
}

func (e *eventLogger) SysEx(payload []byte) {
	e.log.Info("sysex", zap.Int("length", len(payload)), zap.String("payload", hex.EncodeToString(payload)))
}
