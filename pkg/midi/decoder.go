package midi

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSysExCapacity is the default size of the data buffer, and so the
// longest sysex payload that is dispatched.
const DefaultSysExCapacity = 32

// ByteSource is the consumer side of a byte queue.
type ByteSource interface {
	Pop() (byte, bool)
}

// Stats counts what the decoder did with its input.
type Stats struct {
	// Dispatched is the number of handler calls made.
	Dispatched uint64
	// Orphans is the number of data bytes discarded because no data was expected.
	Orphans uint64
	// SysExOverflows is the number of sysex messages dropped for exceeding capacity.
	SysExOverflows uint64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSysExCapacity sets the data buffer size. Values below 2 are ignored.
func WithSysExCapacity(n int) Option {
	return func(d *Decoder) {
		if n >= 2 {
			d.capacity = n
		}
	}
}

// WithLogger sets the logger used for debug entries about dropped input.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// Decoder turns a serial MIDI byte stream into Handler calls.
//
// A Decoder is owned by a single goroutine; Feed, Drain, Stats and Reset
// must not be called concurrently. Running status is not supported: a data
// byte arriving after a completed message is counted as an orphan.
type Decoder struct {
	h   Handler
	log *zap.Logger

	status    Kind
	channel   uint8
	remaining int
	data      []byte
	index     int
	overflow  bool
	capacity  int

	stats Stats
}

// NewDecoder returns a decoder in the Unknown state dispatching to h.
func NewDecoder(h Handler, opts ...Option) *Decoder {
	d := &Decoder{
		h:        h,
		log:      zap.NewNop(),
		capacity: DefaultSysExCapacity,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.data = make([]byte, d.capacity)
	d.Reset()
	return d
}

// Reset returns the decoder to its initial state. Counters are kept.
func (d *Decoder) Reset() {
	d.status = Unknown
	d.channel = 0xFF
	d.remaining = 0
	d.index = 0
	d.overflow = false
}

// Kind returns the kind of the message in progress or last completed.
func (d *Decoder) Kind() Kind {
	return d.status
}

// Stats returns a copy of the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Drain feeds every byte currently available from src and returns how many
// were consumed. It returns as soon as src reports empty.
func (d *Decoder) Drain(src ByteSource) int {
	n := 0
	for {
		b, ok := src.Pop()
		if !ok {
			return n
		}
		d.Feed(b)
		n++
	}
}

// Feed advances the decoder by one byte.
func (d *Decoder) Feed(b byte) {
	if b&0x80 != 0 {
		d.feedStatus(b)
		return
	}

	if d.remaining == 0 {
		if d.status == Extended {
			// sysex buffer is full, the rest of the message is lost
			d.overflow = true
		}
		d.stats.Orphans++
		if ce := d.log.Check(zapcore.DebugLevel, "data byte dropped"); ce != nil {
			ce.Write(zap.Uint8("byte", b), zap.Stringer("status", d.status))
		}
		return
	}

	d.data[d.index] = b
	d.index++
	d.remaining--

	if d.remaining == 0 && d.status != Extended {
		d.dispatch()
	}
}

func (d *Decoder) feedStatus(b byte) {
	if d.status == Extended {
		// Any status byte ends a sysex and is consumed as its EOX.
		d.endSysEx()
		d.Reset()
		return
	}

	kind, channel, ok := kindOf(b)
	if !ok {
		// unreachable while Feed only passes bytes with the high bit set
		d.Reset()
		return
	}

	n, ok := kind.DataLength()
	if !ok {
		n = d.capacity
	}

	d.status = kind
	d.channel = channel
	d.remaining = n
	d.index = 0
	d.overflow = false
}

func (d *Decoder) endSysEx() {
	if d.overflow {
		d.stats.SysExOverflows++
		if ce := d.log.Check(zapcore.DebugLevel, "sysex dropped"); ce != nil {
			ce.Write(zap.Int("capacity", d.capacity))
		}
		d.overflow = false
		return
	}

	d.stats.Dispatched++
	d.h.SysEx(d.data[:d.index])
}

func (d *Decoder) dispatch() {
	data0 := d.data[0]

	switch d.status {
	case NoteOff:
		d.h.NoteOff(d.channel, data0)
	case NoteOn:
		// velocity zero is a note off
		if d.data[1] == 0 {
			d.h.NoteOff(d.channel, data0)
		} else {
			d.h.NoteOn(d.channel, data0, d.data[1])
		}
	case ControlChange:
		d.h.ControlChange(d.channel, data0, d.data[1])
	case ProgramChange:
		d.h.ProgramChange(d.channel, data0)
	case PitchBend:
		d.h.PitchBend(d.channel, PitchBendValue(data0, d.data[1]))
	default:
		return
	}

	d.stats.Dispatched++
}

// PitchBendValue joins the two 7-bit pitch bend data bytes and centres the
// result on zero, giving a value in [-8192, 8191].
func PitchBendValue(lsb, msb uint8) int16 {
	return (int16(msb&0x7F)<<7 | int16(lsb&0x7F)) - 0x2000
}

// PitchBendBytes is the inverse of PitchBendValue. Values outside
// [-8192, 8191] are clamped.
func PitchBendBytes(value int16) (lsb, msb uint8) {
	v := int(value) + 0x2000
	if v < 0 {
		v = 0
	}
	if v > 0x3FFF {
		v = 0x3FFF
	}
	return uint8(v & 0x7F), uint8(v >> 7)
}
