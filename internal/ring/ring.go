// Package ring provides a single-producer/single-consumer lock-free ring
// buffer of float32 audio samples. It is the only structure allowed to sit
// between a platform audio callback and the mixing worker: neither side ever
// blocks, and a full buffer drops the incoming sample instead of applying
// backpressure to the real-time thread.
package ring

import "sync/atomic"

// Buffer is a fixed-capacity SPSC ring. Exactly one goroutine may call Push
// and exactly one goroutine may call Pop; Empty and Len are safe from either
// side.
type Buffer struct {
	buf  []float32
	size uint64

	// head is the consumer cursor, tail the producer cursor. Both increase
	// monotonically; positions are taken modulo size.
	head atomic.Uint64
	tail atomic.Uint64
}

// New creates a buffer holding up to capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		buf:  make([]float32, capacity),
		size: uint64(capacity),
	}
}

// Push appends one sample. It never blocks; when the buffer is full the
// sample is dropped and Push reports false.
func (b *Buffer) Push(s float32) bool {
	t := b.tail.Load()
	if t-b.head.Load() >= b.size {
		return false
	}
	b.buf[t%b.size] = s
	b.tail.Store(t + 1)
	return true
}

// Pop removes and returns the oldest sample. It never blocks; ok is false
// when the buffer is empty.
func (b *Buffer) Pop() (s float32, ok bool) {
	h := b.head.Load()
	if h == b.tail.Load() {
		return 0, false
	}
	s = b.buf[h%b.size]
	b.head.Store(h + 1)
	return s, true
}

// Empty reports whether no samples are buffered.
func (b *Buffer) Empty() bool {
	return b.head.Load() == b.tail.Load()
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return int(b.tail.Load() - b.head.Load())
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return int(b.size)
}
