package rn4871

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// SerialConfig selects and configures the host serial port behind a
// SerialLink.
type SerialConfig struct {
	// Port is the device path, e.g. "/dev/ttyUSB0" or "COM3".
	Port string

	// BaudRate defaults to 115200, the RN4871 factory setting.
	BaudRate int

	// Logger receives link diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// SerialLink drives a host serial port as the duplex channel. One receive
// pump goroutine and one transmit pump goroutine stand in for the two
// interrupt handlers: each is the sole producer or consumer of its ring,
// so the transport's SPSC contract holds.
type SerialLink struct {
	port serial.Port
	isr  ISR
	log  zerolog.Logger

	armed  atomic.Bool
	txMu   sync.Mutex // held by the transmit pump while it pops the TX ring
	kick   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// OpenSerial opens the port 8N1 at the configured baud rate.
func OpenSerial(cfg SerialConfig) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 115200
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &SerialLink{
		port: port,
		log:  logger,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}, nil
}

// Start implements Link.
func (l *SerialLink) Start(isr ISR) error {
	l.isr = isr
	go l.receivePump()
	go l.transmitPump()
	return nil
}

// Close implements Link. Closing the port unblocks the receive pump.
func (l *SerialLink) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	close(l.done)
	return l.port.Close()
}

// EnableTx implements Link. Safe to call repeatedly; the pump disarms
// itself when the TX queue runs dry.
func (l *SerialLink) EnableTx() {
	l.armed.Store(true)
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// DisableTx implements Link. It does not return while the transmit pump
// is mid-drain: once the disarm is observed the pump calls TransmitByte
// no further, so the caller may discard the TX queue afterwards. Bytes
// the pump already popped may still go out on the wire, like a byte
// sitting in a hardware shift register.
func (l *SerialLink) DisableTx() {
	l.armed.Store(false)
	// rendezvous with an in-flight drain
	l.txMu.Lock()
	l.txMu.Unlock()
}

func (l *SerialLink) receivePump() {
	buf := make([]byte, DefaultBufferSize)
	for {
		n, err := l.port.Read(buf)
		if err != nil {
			if !l.closed.Load() {
				l.log.Error().Err(err).Msg("serial read failed")
			}
			return
		}
		for _, b := range buf[:n] {
			l.isr.ReceiveByte(b)
		}
	}
}

func (l *SerialLink) transmitPump() {
	out := make([]byte, 0, DefaultBufferSize)
	for {
		select {
		case <-l.kick:
		case <-l.done:
			return
		}
		for l.armed.Load() {
			// drain a burst so slow ports are not written one
			// syscall per byte; FIFO order is preserved
			out = out[:0]
			l.txMu.Lock()
			for len(out) < cap(out) && l.armed.Load() {
				b, ok := l.isr.TransmitByte()
				if !ok {
					l.armed.Store(false)
					break
				}
				out = append(out, b)
			}
			l.txMu.Unlock()
			if len(out) == 0 {
				break
			}
			if _, err := l.port.Write(out); err != nil {
				if !l.closed.Load() {
					l.log.Error().Err(err).Msg("serial write failed")
				}
				return
			}
		}
	}
}
