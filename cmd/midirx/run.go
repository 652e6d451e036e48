package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Garik-/midirx/pkg/midi"
	"github.com/Garik-/midirx/pkg/ringbuf"
	"github.com/Garik-/midirx/pkg/serialin"
	"go.uber.org/zap"
)

type report struct {
	Pump    serialin.Counts
	Decoder midi.Stats
}

type pumpResult struct {
	counts serialin.Counts
	err    error
}

// receive runs the receive goroutine feeding the queue and drains it into
// the decoder every tick until src is exhausted or ctx is done.
func receive(ctx context.Context, cfg config, src io.Reader, h midi.Handler, log *zap.Logger) (report, error) {
	q, err := ringbuf.New(cfg.QueueSize)
	if err != nil {
		return report{}, err
	}

	decoder := midi.NewDecoder(h,
		midi.WithSysExCapacity(cfg.SysExSize),
		midi.WithLogger(decoderLog),
	)

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan pumpResult, 1)
	go func() {
		counts, err := serialin.Pump(pumpCtx, src, q, pumpLog)
		done <- pumpResult{counts: counts, err: err}
	}()

	ticker := time.NewTicker(cfg.DrainInterval)
	defer ticker.Stop()

	var res pumpResult
loop:
	for {
		select {
		case <-ticker.C:
			decoder.Drain(q)
		case res = <-done:
			break loop
		case <-ctx.Done():
			log.Debug("context done")
			cancel()
			res = <-done
			break loop
		}
	}

	decoder.Drain(q)

	out := report{Pump: res.counts, Decoder: decoder.Stats()}
	if errors.Is(res.err, context.Canceled) {
		res.err = nil
	}

	log.Info("stopped",
		zap.Uint64("read", out.Pump.Read),
		zap.Uint64("dropped", out.Pump.Dropped),
		zap.Uint64("dispatched", out.Decoder.Dispatched),
		zap.Uint64("orphans", out.Decoder.Orphans),
		zap.Uint64("sysex_overflows", out.Decoder.SysExOverflows),
	)
	return out, res.err
}

// fastQueueSize grows a queue size until it holds n bytes or reaches
// ringbuf.MaxCapacity. It never shrinks the size.
func fastQueueSize(size, n int) int {
	for size < ringbuf.MaxCapacity && size-1 < n {
		size <<= 1
	}
	return size
}

// pacedReader limits reads to the rate of a serial line so a replayed file
// does not outrun the drain loop.
type pacedReader struct {
	r       io.Reader
	perByte time.Duration
}

func newPacedReader(r io.Reader, baud int) *pacedReader {
	// 10 bits per byte on the wire: start, 8 data, stop
	return &pacedReader{r: r, perByte: time.Second * 10 / time.Duration(baud)}
}

func (p *pacedReader) Read(b []byte) (int, error) {
	if len(b) > 4 {
		b = b[:4]
	}
	n, err := p.r.Read(b)
	if n > 0 {
		time.Sleep(time.Duration(n) * p.perByte)
	}
	return n, err
}
