package rn4871

import "testing"

// moduleSim plays the RN4871 side of the link for tests. EnableTx drains
// the TX ring synchronously, standing in for the transmit interrupt
// handler; the millis method is the test Clock and also plays the receive
// handler, delivering one staged reply byte per tick once the simulated
// processing latency has passed. Every deadline loop in the driver polls
// the clock, so delivery is deterministic without goroutines.
type moduleSim struct {
	isr ISR
	now uint32

	armed   bool
	stalled bool // when set, EnableTx leaves the TX ring untouched

	latency uint32 // ticks between a command and the start of its reply
	readyAt uint32

	cmd     []byte // bytes of the command being assembled
	pending []byte // staged module-to-host bytes
	raw     []byte // every byte drained from the TX ring, in order
	sent    []string

	handler func(cmd string) string
}

func newModuleSim(handler func(cmd string) string) *moduleSim {
	return &moduleSim{handler: handler, latency: 20}
}

func (m *moduleSim) Start(isr ISR) error { m.isr = isr; return nil }
func (m *moduleSim) Close() error        { return nil }
func (m *moduleSim) DisableTx()          { m.armed = false }

func (m *moduleSim) EnableTx() {
	m.armed = true
	if m.stalled {
		return
	}
	for m.armed {
		b, ok := m.isr.TransmitByte()
		if !ok {
			m.armed = false
			return
		}
		m.raw = append(m.raw, b)
		m.cmd = append(m.cmd, b)
		m.dispatch()
	}
}

// dispatch reacts to a complete CR-terminated command, or to the bare
// escape sequence which the module recognizes without a terminator.
func (m *moduleSim) dispatch() {
	var cmd string
	switch {
	case string(m.cmd) == cmdEnterCommandMode:
		cmd = cmdEnterCommandMode
	case len(m.cmd) > 0 && m.cmd[len(m.cmd)-1] == '\r':
		cmd = string(m.cmd[:len(m.cmd)-1])
	default:
		return
	}
	m.cmd = m.cmd[:0]
	m.sent = append(m.sent, cmd)
	if m.handler != nil {
		m.reply(m.handler(cmd))
	}
}

func (m *moduleSim) reply(s string) {
	if s == "" {
		return
	}
	if len(m.pending) == 0 {
		m.readyAt = m.now + m.latency
	}
	m.pending = append(m.pending, s...)
}

// millis is the fake Clock.
func (m *moduleSim) millis() uint32 {
	m.now++
	if len(m.pending) > 0 && m.now >= m.readyAt {
		m.isr.ReceiveByte(m.pending[0])
		m.pending = m.pending[1:]
	}
	return m.now
}

func newTestDevice(t *testing.T, handler func(cmd string) string) (*Device, *moduleSim) {
	t.Helper()
	sim := newModuleSim(handler)
	uart, err := NewUART(sim, UARTConfig{Clock: sim.millis})
	if err != nil {
		t.Fatalf("NewUART: %v", err)
	}
	return New(uart), sim
}

func aokOnly(cmd string) string {
	return respAOK + "\r\n"
}
