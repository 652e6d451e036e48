// Package ringbuf implements a fixed-capacity byte queue shared by exactly one
// producer and one consumer without locks.
//
// The producer (the receive goroutine standing in for a UART interrupt) only
// calls Push, the consumer (the drain loop) only calls Pop. Each side stores
// its own cursor and loads the other's, so no compare-and-swap is needed.
package ringbuf

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MaxCapacity is the largest backing size accepted by New.
const MaxCapacity = 1 << 16

// ErrCapacity reports a capacity that is not a power of two in [2, MaxCapacity].
var ErrCapacity = errors.New("capacity must be a power of two")

// Queue is a single-producer, single-consumer circular buffer of bytes.
//
// One slot is kept free to tell a full queue from an empty one, so a Queue
// built with capacity C holds at most C-1 unread bytes.
type Queue struct {
	write atomic.Uint32 // owned by the producer
	read  atomic.Uint32 // owned by the consumer

	dropped atomic.Uint64

	buf  []byte
	mask uint32
}

// New allocates a queue with the given backing size.
func New(capacity int) (*Queue, error) {
	if capacity < 2 || capacity > MaxCapacity || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}

	return &Queue{
		buf:  make([]byte, capacity),
		mask: uint32(capacity - 1),
	}, nil
}

// Push enqueues b. It reports false and drops b when the queue is full.
// Only the producer may call Push.
func (q *Queue) Push(b byte) bool {
	w := q.write.Load()
	next := (w + 1) & q.mask
	if next == q.read.Load() {
		q.dropped.Add(1)
		return false
	}

	q.buf[w] = b
	q.write.Store(next)
	return true
}

// Pop dequeues the oldest byte. Only the consumer may call Pop.
func (q *Queue) Pop() (byte, bool) {
	r := q.read.Load()
	if r == q.write.Load() {
		return 0, false
	}

	b := q.buf[r]
	q.read.Store((r + 1) & q.mask)
	return b, true
}

// Len returns the number of unread bytes. The value is a snapshot and may be
// stale by the time the caller uses it.
func (q *Queue) Len() int {
	return int((q.write.Load() - q.read.Load()) & q.mask)
}

// Cap returns the number of bytes the queue can hold at once.
func (q *Queue) Cap() int {
	return len(q.buf) - 1
}

// Dropped returns how many bytes Push rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
