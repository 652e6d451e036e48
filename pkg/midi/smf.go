package midi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type nextChunkType int

const (
	eventChunk nextChunkType = iota + 1
	trackChunk
)

type timeFormat int

const (
	MetricalTF timeFormat = iota + 1
	TimeCodeTF
)

const (
	statusSysEx  = 0xF0
	statusEscape = 0xF7
	statusMeta   = 0xFF
	metaEndTrack = 0x2F
)

var (
	headerChunkID = [4]byte{0x4D, 0x54, 0x68, 0x64}
	trackChunkID  = [4]byte{0x4D, 0x54, 0x72, 0x6B}

	// ErrFmtNotSupported is a generic error reporting an unknown format.
	ErrFmtNotSupported = errors.New("format not supported")
	// ErrUnexpectedData is a generic error reporting that the parser encountered unexpected data.
	ErrUnexpectedData = errors.New("unexpected data content")
)

// Event is a channel or sysex event read from a track.
type Event struct {
	TimeDelta uint32
	Status    byte
	Data      []byte
}

// Wire returns the event as it would arrive on a serial MIDI line. Channel
// events always carry their status byte. A sysex is closed with EOX, and an
// escape (0xF7) event yields its raw bytes.
func (e *Event) Wire() []byte {
	switch e.Status {
	case statusEscape:
		return e.Data
	case statusSysEx:
		out := append([]byte{statusSysEx}, e.Data...)
		if len(e.Data) == 0 || e.Data[len(e.Data)-1] != statusEscape {
			out = append(out, statusEscape)
		}
		return out
	default:
		return append([]byte{e.Status}, e.Data...)
	}
}

type Track struct {
	Events []*Event
}

// FileReader reads a Standard MIDI File and keeps the events a serial
// receiver would see. Meta events are skipped.
type FileReader struct {
	r             io.ReadSeeker
	currentTrack  *Track
	trackEnd      int64
	runningStatus byte
	offset        int64

	Format              uint16
	TicksPerQuarterNote uint16
	TimeFormat          timeFormat
	Tracks              []*Track
}

func NewFileReader(r io.ReadSeeker) *FileReader {
	return &FileReader{r: r}
}

func (d *FileReader) Decode() error {
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d.offset = 0
	d.Tracks = nil

	var code [4]byte
	if err := binary.Read(d.r, binary.BigEndian, &code); err != nil {
		return err
	}
	if code != headerChunkID {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, code)
	}
	d.offset += 4 // [4]byte code

	var header struct {
		Size      uint32
		Format    uint16
		NumTracks uint16
		Division  uint16
	}
	if err := binary.Read(d.r, binary.BigEndian, &header); err != nil {
		return err
	}
	if header.Size != 6 {
		return fmt.Errorf("%w - expected header size to be 6, was %d", ErrFmtNotSupported, header.Size)
	}
	if header.Format > 2 {
		return fmt.Errorf("%w - file format %d", ErrFmtNotSupported, header.Format)
	}
	d.offset += 4 + 2 + 2 + 2

	d.Format = header.Format
	if (header.Division & 0x8000) == 0 {
		d.TicksPerQuarterNote = header.Division & 0x7FFF
		d.TimeFormat = MetricalTF
	} else {
		d.TimeFormat = TimeCodeTF
	}

	nextChunk, err := d.parseTrack()
	for err == nil {
		switch nextChunk {
		case eventChunk:
			nextChunk, err = d.parseEvent()
		case trackChunk:
			nextChunk, err = d.parseTrack()
		}
	}

	if err != io.EOF {
		return err
	}

	_, err = d.r.Seek(0, io.SeekStart)
	return err
}

// WireBytes concatenates the wire form of every event, track by track.
func (d *FileReader) WireBytes() []byte {
	var out []byte
	for _, track := range d.Tracks {
		for _, event := range track.Events {
			out = append(out, event.Wire()...)
		}
	}
	return out
}

func (d *FileReader) parseTrack() (nextChunkType, error) {
	id, size, err := d.IDnSize()
	if err != nil {
		return trackChunk, err
	}
	if id != trackChunkID {
		return trackChunk, fmt.Errorf("%w - expected track chunk ID %v, got %v", ErrUnexpectedData, trackChunkID, id)
	}

	d.currentTrack = new(Track)
	d.Tracks = append(d.Tracks, d.currentTrack)
	d.trackEnd = d.offset + int64(size)
	d.runningStatus = 0

	return d.next(), nil
}

func (d *FileReader) parseEvent() (nextChunkType, error) {
	nextChunk, err := d.readEvent()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nextChunk, err
}

func (d *FileReader) readEvent() (nextChunkType, error) {
	timeDelta, err := d.varLen()
	if err != nil {
		return eventChunk, err
	}

	// status byte give us the msg type and channel.
	statusByte, err := d.readByte()
	if err != nil {
		return eventChunk, err
	}

	if statusByte&0x80 == 0 {
		if !isVoiceMsgType(d.runningStatus >> 4) {
			return eventChunk, fmt.Errorf("%w - data byte %#x without status at offset %d", ErrUnexpectedData, statusByte, d.offset-1)
		}
		statusByte = d.runningStatus

		d.offset -= 1
		if _, err := d.r.Seek(-1, io.SeekCurrent); err != nil {
			return eventChunk, err
		}
	}

	e := &Event{TimeDelta: timeDelta, Status: statusByte}

	switch {
	case isVoiceMsgType(statusByte >> 4):
		kind, _, _ := kindOf(statusByte)
		n, _ := kind.DataLength()
		e.Data = make([]byte, n)
		for i := range e.Data {
			if e.Data[i], err = d.uint7(); err != nil {
				return eventChunk, err
			}
		}
		d.runningStatus = statusByte

	case statusByte == statusSysEx || statusByte == statusEscape:
		d.runningStatus = 0
		if e.Data, err = d.varLenData(); err != nil {
			return eventChunk, err
		}

	case statusByte == statusMeta:
		d.runningStatus = 0
		return d.parseMetaMsg()

	default:
		return eventChunk, fmt.Errorf("%w - status %#x at offset %d", ErrUnexpectedData, statusByte, d.offset-1)
	}

	d.currentTrack.Events = append(d.currentTrack.Events, e)
	return d.next(), nil
}

func (d *FileReader) parseMetaMsg() (nextChunkType, error) {
	metaType, err := d.readByte()
	if err != nil {
		return eventChunk, err
	}

	if err := d.varLenTxt(); err != nil {
		return eventChunk, err
	}

	if metaType == metaEndTrack {
		return d.skipToTrackEnd()
	}
	return d.next(), nil
}

// next picks the chunk to read after an event.
func (d *FileReader) next() nextChunkType {
	if d.offset >= d.trackEnd {
		return trackChunk
	}
	return eventChunk
}

func (d *FileReader) skipToTrackEnd() (nextChunkType, error) {
	if d.offset < d.trackEnd {
		if _, err := d.r.Seek(d.trackEnd, io.SeekStart); err != nil {
			return trackChunk, err
		}
		d.offset = d.trackEnd
	}
	return trackChunk, nil
}
