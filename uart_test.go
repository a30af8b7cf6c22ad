package rn4871

import (
	"bytes"
	"testing"
)

func newTestUART(t *testing.T, handler func(cmd string) string) (*UART, *moduleSim) {
	t.Helper()
	sim := newModuleSim(handler)
	uart, err := NewUART(sim, UARTConfig{Clock: sim.millis})
	if err != nil {
		t.Fatalf("NewUART: %v", err)
	}
	return uart, sim
}

func TestUARTWriteByteArmsLink(t *testing.T) {
	uart, sim := newTestUART(t, nil)

	if !uart.WriteByte('A') {
		t.Fatal("WriteByte rejected on empty TX queue")
	}
	if string(sim.raw) != "A" {
		t.Errorf("link drained %q, want %q", sim.raw, "A")
	}
}

func TestUARTWriteLine(t *testing.T) {
	uart, sim := newTestUART(t, nil)

	uart.WriteLine("hello")
	if string(sim.raw) != "hello\r\n" {
		t.Errorf("link drained %q, want %q", sim.raw, "hello\r\n")
	}
}

func TestUARTReadBytesPartial(t *testing.T) {
	uart, sim := newTestUART(t, nil)
	sim.reply("AB")

	p := make([]byte, 4)
	n := uart.ReadBytes(p)
	if n != 2 {
		t.Fatalf("ReadBytes = %d, want 2 (partial read is a normal outcome)", n)
	}
	if !bytes.Equal(p[:n], []byte("AB")) {
		t.Errorf("ReadBytes collected %q, want %q", p[:n], "AB")
	}
}

func TestUARTReadBytesFillsBeforeDeadline(t *testing.T) {
	uart, sim := newTestUART(t, nil)
	sim.reply("WXYZ??")

	p := make([]byte, 4)
	if n := uart.ReadBytes(p); n != 4 {
		t.Fatalf("ReadBytes = %d, want 4", n)
	}
	if string(p) != "WXYZ" {
		t.Errorf("ReadBytes collected %q, want %q", p, "WXYZ")
	}
}

func TestUARTFlushTxDiscardsUnsent(t *testing.T) {
	uart, sim := newTestUART(t, nil)

	sim.stalled = true
	for _, b := range []byte("OLD") {
		if !uart.WriteByte(b) {
			t.Fatalf("WriteByte %q rejected", b)
		}
	}
	uart.FlushTx()
	if sim.armed {
		t.Error("FlushTx left the transmit source armed")
	}

	sim.stalled = false
	uart.WriteByte('X')
	if string(sim.raw) != "X" {
		t.Errorf("link drained %q after flush, want %q", sim.raw, "X")
	}
}

func TestUARTFlushRxDiscardsUnread(t *testing.T) {
	uart, _ := newTestUART(t, nil)

	uart.ReceiveByte('a')
	uart.ReceiveByte('b')
	uart.FlushRx()
	if uart.Buffered() != 0 {
		t.Errorf("Buffered = %d after FlushRx, want 0", uart.Buffered())
	}
	if _, ok := uart.ReadByte(); ok {
		t.Error("ReadByte succeeded after FlushRx")
	}
}

func TestUARTFlushRxLeavesProducerIndexAlone(t *testing.T) {
	uart, _ := newTestUART(t, nil)

	uart.ReceiveByte('a')
	uart.ReceiveByte('b')
	head := uart.rx.head.Load()

	// the flush owns only the consumer side; rewinding head could tear
	// a push the receive context has in flight
	uart.FlushRx()
	if got := uart.rx.head.Load(); got != head {
		t.Fatalf("FlushRx moved the producer index from %d to %d", head, got)
	}
	if uart.Buffered() != 0 {
		t.Errorf("Buffered = %d after FlushRx, want 0", uart.Buffered())
	}

	uart.ReceiveByte('c')
	if b, ok := uart.ReadByte(); !ok || b != 'c' {
		t.Errorf("ReadByte after flush = %#x, %v; want 'c', true", b, ok)
	}
}

func TestUARTWriteByteFullQueue(t *testing.T) {
	uart, sim := newTestUART(t, nil)

	sim.stalled = true
	accepted := 0
	for uart.WriteByte(0x55) {
		accepted++
	}
	if accepted != DefaultBufferSize-1 {
		t.Errorf("accepted %d writes before full, want %d", accepted, DefaultBufferSize-1)
	}
}

func TestUARTReceiveOverrunDropsBytes(t *testing.T) {
	uart, _ := newTestUART(t, nil)

	for i := 0; i < DefaultBufferSize+10; i++ {
		uart.ReceiveByte(byte(i))
	}
	if got := uart.Buffered(); got != DefaultBufferSize-1 {
		t.Fatalf("Buffered = %d after overrun, want %d", got, DefaultBufferSize-1)
	}
	// the oldest bytes survive, in arrival order
	for i := 0; i < DefaultBufferSize-1; i++ {
		b, ok := uart.ReadByte()
		if !ok || b != byte(i) {
			t.Fatalf("ReadByte %d = %#x, %v; want %#x, true", i, b, ok, byte(i))
		}
	}
	// transport still works after the overrun
	uart.ReceiveByte(0x42)
	if b, ok := uart.ReadByte(); !ok || b != 0x42 {
		t.Errorf("ReadByte after overrun = %#x, %v; want 0x42, true", b, ok)
	}
}

func TestUARTTransmitByteDisarms(t *testing.T) {
	uart, _ := newTestUART(t, nil)

	if _, ok := uart.TransmitByte(); ok {
		t.Error("TransmitByte reported data on empty TX queue")
	}
	uart.WriteByte('Q')
	if _, ok := uart.TransmitByte(); ok {
		t.Error("TransmitByte reported data after link drained the queue")
	}
}
