package rn4871

import "sync/atomic"

// RingBuffer is a fixed-capacity byte queue shared between exactly one
// producer context and one consumer context. The capacity must be a power
// of two: index wraparound uses capacity-1 masking, so any other size is a
// configuration error and silently misbehaves. One slot is kept free to
// distinguish full from empty, leaving a usable capacity of N-1.
//
// The head index is written only by the producer and the tail index only by
// the consumer. Both are atomic so that the producer and consumer may live
// on different goroutines, as they do under SerialLink's receive and
// transmit pumps.
type RingBuffer struct {
	buf  []byte
	mask uint32
	head atomic.Uint32
	tail atomic.Uint32
}

// NewRingBuffer returns a ring with the given capacity, which must be a
// power of two.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buf:  make([]byte, capacity),
		mask: uint32(capacity) - 1,
	}
}

// Producer returns the write-side handle. A ring must have at most one
// producer at any time.
func (r *RingBuffer) Producer() RingProducer {
	return RingProducer{r}
}

// Consumer returns the read-side handle. A ring must have at most one
// consumer at any time.
func (r *RingBuffer) Consumer() RingConsumer {
	return RingConsumer{r}
}

// Len reports the number of buffered bytes. It may be called from either
// context; a result observed across a concurrent push or pop is a snapshot
// that is never larger than the usable capacity.
func (r *RingBuffer) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((uint32(len(r.buf)) + head - tail) & r.mask)
}

// reset empties the ring by rewinding both indices. The caller must have
// quiesced the opposite context first (the transport disarms the transmit
// source before resetting the TX ring).
func (r *RingBuffer) reset() {
	r.head.Store(0)
	r.tail.Store(0)
}

// RingProducer is the write-side handle of a RingBuffer.
type RingProducer struct {
	r *RingBuffer
}

// Push appends one byte. It returns false without mutating anything when
// the ring is full; it never blocks and never overwrites.
func (p RingProducer) Push(b byte) bool {
	head := p.r.head.Load()
	next := (head + 1) & p.r.mask
	if next == p.r.tail.Load() {
		return false
	}
	p.r.buf[head] = b
	p.r.head.Store(next)
	return true
}

// Full reports whether the next Push would fail.
func (p RingProducer) Full() bool {
	return (p.r.head.Load()+1)&p.r.mask == p.r.tail.Load()
}

// RingConsumer is the read-side handle of a RingBuffer.
type RingConsumer struct {
	r *RingBuffer
}

// Pop removes and returns the oldest byte. It returns false without
// mutating anything when the ring is empty.
func (c RingConsumer) Pop() (byte, bool) {
	tail := c.r.tail.Load()
	if tail == c.r.head.Load() {
		return 0, false
	}
	b := c.r.buf[tail]
	c.r.tail.Store((tail + 1) & c.r.mask)
	return b, true
}

// Empty reports whether the next Pop would fail.
func (c RingConsumer) Empty() bool {
	return c.r.head.Load() == c.r.tail.Load()
}

// Len reports the number of buffered bytes.
func (c RingConsumer) Len() int {
	return c.r.Len()
}
