package rn4871

import (
	"runtime"

	"github.com/rs/zerolog"
)

const (
	// DefaultBufferSize is the capacity of each transport ring when the
	// config leaves it zero. Must be a power of two.
	DefaultBufferSize = 64

	// readTimeout bounds ReadBytes and the line collectors, in
	// milliseconds of the injected clock.
	readTimeout = 1000
)

// UARTConfig carries the transport's injected dependencies.
type UARTConfig struct {
	// BufferSize is the capacity of the RX and TX rings. It must be a
	// power of two; this is a configuration contract, not a runtime
	// check. Zero selects DefaultBufferSize.
	BufferSize int

	// Clock is the millisecond source for deadline-bounded reads. Nil
	// selects SystemClock.
	Clock Clock

	// Logger receives transport diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// UART hides the duplex channel behind byte and line operations. It owns
// one RX ring fed by the link's receive context and one TX ring drained by
// the link's transmit context; all other methods belong to the foreground.
type UART struct {
	link  Link
	clock Clock
	log   zerolog.Logger

	rx *RingBuffer
	tx *RingBuffer

	rxPut RingProducer // receive context
	rxGet RingConsumer // foreground
	txPut RingProducer // foreground
	txGet RingConsumer // transmit context
}

// NewUART wires a transport onto the given link and starts it. Created
// once at startup; it lives for the process lifetime.
func NewUART(link Link, cfg UARTConfig) (*UART, error) {
	size := cfg.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	u := &UART{
		link:  link,
		clock: clock,
		log:   logger,
		rx:    NewRingBuffer(size),
		tx:    NewRingBuffer(size),
	}
	u.rxPut = u.rx.Producer()
	u.rxGet = u.rx.Consumer()
	u.txPut = u.tx.Producer()
	u.txGet = u.tx.Consumer()

	if err := link.Start(u); err != nil {
		return nil, err
	}
	return u, nil
}

// WriteByte queues one byte for transmission and arms the link's
// transmit-ready source. It returns false when the TX queue is full; the
// caller decides whether to retry.
func (u *UART) WriteByte(b byte) bool {
	if !u.txPut.Push(b) {
		return false
	}
	u.link.EnableTx()
	return true
}

// WriteString queues every byte of s, busy-retrying while the TX queue is
// full. Liveness depends on the link draining the queue; a permanently
// stalled link stalls the caller.
func (u *UART) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		for !u.WriteByte(s[i]) {
			runtime.Gosched()
		}
	}
}

// WriteLine writes s followed by CR LF.
func (u *UART) WriteLine(s string) {
	u.WriteString(s)
	u.WriteString("\r\n")
}

// Buffered reports the number of received bytes waiting to be read.
func (u *UART) Buffered() int {
	return u.rxGet.Len()
}

// ReadByte pops one received byte; false when nothing is buffered.
func (u *UART) ReadByte() (byte, bool) {
	return u.rxGet.Pop()
}

// ReadBytes fills p with received bytes, polling until p is full or the
// read deadline passes. A partial count is a normal outcome, not an error.
func (u *UART) ReadBytes(p []byte) int {
	n := 0
	start := u.clock()
	for n < len(p) && u.clock()-start < readTimeout {
		b, ok := u.rxGet.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		p[n] = b
		n++
	}
	return n
}

// FlushTx disarms the transmit source and empties the TX queue. Buffered
// but unsent bytes are discarded; this is not a wait-until-drained flush.
// DisableTx quiesces the transmit context before it returns, which makes
// the index rewind safe against a concurrent drain.
func (u *UART) FlushTx() {
	u.link.DisableTx()
	u.tx.reset()
}

// FlushRx empties the RX queue, discarding buffered but unread bytes. It
// drains through the consumer handle rather than rewinding indices: the
// receive context may be mid-push at any moment, and only the consumer
// side is ours to move.
func (u *UART) FlushRx() {
	for {
		if _, ok := u.rxGet.Pop(); !ok {
			return
		}
	}
}

// Close shuts down the underlying link.
func (u *UART) Close() error {
	return u.link.Close()
}

// ReceiveByte implements ISR. The link calls it for every inbound byte; on
// overrun the byte is dropped, the accepted failure mode under sustained
// input the foreground is not consuming.
func (u *UART) ReceiveByte(b byte) {
	u.rxPut.Push(b)
}

// TransmitByte implements ISR. A false return tells the link the TX queue
// is empty; the next accepted WriteByte re-arms it.
func (u *UART) TransmitByte() (byte, bool) {
	return u.txGet.Pop()
}
