package rn4871

// ISR is the interrupt-side surface of the UART transport. The link calls
// these from its own receive and transmit contexts; foreground code never
// does.
type ISR interface {
	// ReceiveByte delivers one inbound byte from the wire.
	ReceiveByte(b byte)

	// TransmitByte asks for the next outbound byte. A false return means
	// the transmit queue is empty and the link must disarm its
	// transmit-ready source until EnableTx is called again.
	TransmitByte() (byte, bool)
}

// Link is the byte-duplex hardware channel behind a UART. Implementations
// stand in for the receive-ready and transmit-ready interrupt sources of a
// hardware UART: SerialLink drives a host serial port, and tests supply a
// simulated module.
type Link interface {
	// Start attaches the interrupt-side surface and begins delivering
	// bytes. Called exactly once, by NewUART.
	Start(isr ISR) error

	// Close tears the channel down. Pending bytes may be lost.
	Close() error

	// EnableTx arms the transmit-ready source. Idempotent; called on
	// every accepted write.
	EnableTx()

	// DisableTx disarms the transmit-ready source and does not return
	// until the transmit context has stopped calling TransmitByte. The
	// transport relies on this to discard the TX queue safely.
	DisableTx()
}
