// Package serialin moves bytes from a serial line into a byte queue.
//
// Pump plays the role of the UART receive interrupt: it runs on its own
// goroutine, never waits for the consumer and drops bytes when the queue
// is full.
package serialin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaud is the MIDI 1.0 serial rate.
	DefaultBaud = 31250
	// DefaultReadTimeout bounds how long Pump waits before checking for cancellation.
	DefaultReadTimeout = 50 * time.Millisecond

	chunkSize = 64
)

var ErrNoPort = errors.New("no serial port configured")

// Sink is the producer side of a byte queue.
type Sink interface {
	Push(byte) bool
}

// Config describes the serial line.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// Counts is what Pump did with the bytes it read.
type Counts struct {
	Read    uint64
	Dropped uint64
}

// Open opens the serial device as 8 data bits, no parity, one stop bit.
func Open(cfg Config) (serial.Port, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("serialin: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialin: set read timeout: %w", err)
	}
	return port, nil
}

// Ports lists the serial devices present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Pump reads r until EOF, a read error or ctx is done, pushing every byte
// into q. A read returning no bytes is treated as a timeout and retried.
func Pump(ctx context.Context, r io.Reader, q Sink, log *zap.Logger) (Counts, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pump")

	var (
		counts Counts
		buf    [chunkSize]byte
	)

	for {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			counts.Read++
			if !q.Push(b) {
				counts.Dropped++
			}
		}

		if err == io.EOF {
			log.Debug("eof", zap.Uint64("read", counts.Read), zap.Uint64("dropped", counts.Dropped))
			return counts, nil
		}
		if err != nil {
			return counts, fmt.Errorf("serialin: read: %w", err)
		}
	}
}
