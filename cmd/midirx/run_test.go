package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Garik-/midirx/pkg/midi"
	"github.com/Garik-/midirx/pkg/ringbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() config {
	cfg := defaultConfig()
	cfg.QueueSize = 256
	return cfg
}

func TestReceive(t *testing.T) {
	var calls []string
	h := midi.HandlerFuncs{
		OnNoteOn:        func(uint8, uint8, uint8) { calls = append(calls, "noteOn") },
		OnNoteOff:       func(uint8, uint8) { calls = append(calls, "noteOff") },
		OnControlChange: func(uint8, uint8, uint8) { calls = append(calls, "controlChange") },
		OnSysEx:         func([]byte) { calls = append(calls, "sysex") },
	}

	in := []byte{0x90, 0x3C, 0x40, 0x90, 0x3C, 0x00, 0xB0, 0x07, 0x7F, 0xF0, 0x01, 0x02, 0xF7, 0x12}
	rep, err := receive(context.Background(), testConfig(), bytes.NewReader(in), h, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"noteOn", "noteOff", "controlChange", "sysex"}, calls)
	assert.Equal(t, uint64(len(in)), rep.Pump.Read)
	assert.Equal(t, uint64(0), rep.Pump.Dropped)
	assert.Equal(t, uint64(4), rep.Decoder.Dispatched)
	assert.Equal(t, uint64(1), rep.Decoder.Orphans)
}

// blockingReader never returns data until its context is done.
type blockingReader struct {
	ctx context.Context
}

func (b blockingReader) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, nil
}

func TestReceive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := receive(ctx, testConfig(), blockingReader{ctx}, midi.HandlerFuncs{}, zap.NewNop())
	assert.NoError(t, err)
}

func TestEventLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newEventLogger(zap.New(core))

	d := midi.NewDecoder(h)
	for _, b := range []byte{0x91, 0x3C, 0x40, 0xE0, 0x00, 0x40, 0xC0, 0x01, 0xF0, 0x7E, 0xF7} {
		d.Feed(b)
	}

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "note on", entries[0].Message)
	assert.Equal(t, uint8(1), entries[0].ContextMap()["channel"])
	assert.Equal(t, "pitch bend", entries[1].Message)
	assert.Equal(t, "program change", entries[2].Message)
	assert.Equal(t, "sysex", entries[3].Message)
	assert.Equal(t, "7e", entries[3].ContextMap()["payload"])
}

func TestPacedReader(t *testing.T) {
	r := newPacedReader(bytes.NewReader(make([]byte, 10)), 100000)
	assert.Equal(t, 100*time.Microsecond, r.perByte)

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestFastQueueSize(t *testing.T) {
	tests := []struct {
		size, n, want int
	}{
		{64, 10, 64},
		{64, 63, 64},
		{64, 64, 128},
		{64, 5000, 8192},
		{1024, 10, 1024},
		{64, 1 << 20, ringbuf.MaxCapacity},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fastQueueSize(tt.size, tt.n), "size %d, n %d", tt.size, tt.n)
	}
}

func smfBytes(events ...byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("MThd")
	_ = binary.Write(&buf, binary.BigEndian, []uint32{6})
	_ = binary.Write(&buf, binary.BigEndian, []uint16{0, 1, 96})
	buf.WriteString("MTrk")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(events)))
	buf.Write(events)
	return buf.Bytes()
}

func TestReplayCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, smfBytes(
		0x00, 0x90, 0x3C, 0x40,
		0x60, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"replay", "--fast", "--queue-size", "256", path})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "6 bytes, 2 events, 0 dropped\n", out.String())
}

func TestReplayCmd_FastDefaultQueue(t *testing.T) {
	var events []byte
	for i := 0; i < 200; i++ {
		events = append(events, 0x00, 0x90, byte(i%128), 0x40)
	}
	path := filepath.Join(t.TempDir(), "long.mid")
	require.NoError(t, os.WriteFile(path, smfBytes(events...), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"replay", "--fast", path})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "600 bytes, 200 events, 0 dropped\n", out.String())
}

func TestReplayCmd_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, []byte("not midi at all"), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"replay", path})
	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, midi.ErrFmtNotSupported)
}

func TestListenCmd_NoPort(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"listen"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}
