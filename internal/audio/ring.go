package audio

import "sync/atomic"

// DefaultRingCapacity holds roughly 0.34s of stereo or 0.68s of mono
// audio at 48 kHz.
const DefaultRingCapacity = 32768

// Ring is a bounded single-producer/single-consumer FIFO of float32
// samples. The producer is a realtime capture callback and must never
// block, so Push fails instead of waiting when the buffer is full.
// Exactly one goroutine may push and exactly one may pop.
type Ring struct {
	buf  []float32
	mask uint64
	head atomic.Uint64 // next write position, owned by the producer
	tail atomic.Uint64 // next read position, owned by the consumer
}

// NewRing creates a ring with at least the given capacity, rounded up to
// a power of two. Capacities below 2 are rejected by rounding up to 2.
func NewRing(capacity int) *Ring {
	n := 2
	for n < capacity {
		n <<= 1
	}
	return &Ring{
		buf:  make([]float32, n),
		mask: uint64(n - 1),
	}
}

// Cap returns the number of samples the ring can hold.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of samples currently buffered.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Push appends one sample. It returns false without blocking when the
// ring is full. Producer side only.
func (r *Ring) Push(v float32) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// PushSlice appends as many samples from src as fit and returns the
// number accepted; the remainder is the caller's to drop. Producer side
// only.
func (r *Ring) PushSlice(src []float32) int {
	head := r.head.Load()
	free := uint64(len(r.buf)) - (head - r.tail.Load())
	n := len(src)
	if uint64(n) > free {
		n = int(free)
	}
	for i := 0; i < n; i++ {
		r.buf[(head+uint64(i))&r.mask] = src[i]
	}
	r.head.Store(head + uint64(n))
	return n
}

// Pop moves up to len(dst) buffered samples into dst and returns the
// number moved. It never blocks; an empty ring yields 0. Consumer side
// only.
func (r *Ring) Pop(dst []float32) int {
	tail := r.tail.Load()
	avail := r.head.Load() - tail
	n := len(dst)
	if uint64(n) > avail {
		n = int(avail)
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(tail+uint64(i))&r.mask]
	}
	r.tail.Store(tail + uint64(n))
	return n
}
