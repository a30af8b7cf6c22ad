// Package rn4871 implements a host-side driver for the Microchip RN4871
// Bluetooth Low Energy module attached over an asynchronous serial link.
//
// The driver speaks the module's ASCII command protocol: it switches the
// module between transparent data mode and command mode, configures GATT
// services and characteristics, manages advertising, and resolves
// characteristic handles from the module's listing output. All waits are
// deadline-bounded busy polls against an injected millisecond clock; every
// operation that can fail returns an explicit error and callers retry at a
// higher level if they want to.
package rn4871

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Mode is the driver's view of the module's operating state.
type Mode uint8

const (
	// DataMode relays typed bytes transparently as application payload.
	DataMode Mode = iota
	// CommandMode interprets typed text as configuration commands.
	CommandMode
)

func (m Mode) String() string {
	switch m {
	case DataMode:
		return "data"
	case CommandMode:
		return "command"
	default:
		return "unknown"
	}
}

// ConnectionStatus is the three-valued result of a GK query. A deadline
// expiry with nothing parsed is indeterminate, not "disconnected".
type ConnectionStatus uint8

const (
	StatusUnknown ConnectionStatus = iota
	StatusConnected
	StatusNotConnected
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusNotConnected:
		return "not connected"
	default:
		return "unknown"
	}
}

var (
	ErrTimeout          = errors.New("rn4871: response timeout")
	ErrResponseMismatch = errors.New("rn4871: unexpected response")
	ErrNoPrompt         = errors.New("rn4871: no command prompt")
	ErrInvalidUUID      = errors.New("rn4871: invalid UUID")
)

// Device is one protocol session with the module. It holds the mode flag,
// a bounded scratch buffer for the most recent response line, and the name
// cached by SetSerializedName. All methods are foreground-only; nothing
// here may be called from a link callback.
type Device struct {
	uart  *UART
	clock Clock
	log   zerolog.Logger

	mode Mode
	buf  []byte
	name string
}

// New creates the session for a transport. A fresh session starts in
// DataMode, the module's power-on state.
func New(uart *UART) *Device {
	return &Device{
		uart:  uart,
		clock: uart.clock,
		log:   uart.log,
		mode:  DataMode,
		buf:   make([]byte, 0, responseBufSize),
	}
}

// Mode returns the driver's view of the operating mode.
func (d *Device) Mode() Mode {
	return d.mode
}

// LastResponse returns the most recent response line captured by a read
// primitive. Valid until the next command.
func (d *Device) LastResponse() string {
	return string(d.buf)
}

// DeviceName returns the serialized name cached by SetSerializedName.
func (d *Device) DeviceName() string {
	return d.name
}

func (d *Device) setMode(m Mode) {
	if d.mode != m {
		d.log.Debug().Stringer("mode", m).Msg("operating mode changed")
	}
	d.mode = m
}

// delay busy-polls the clock for ms milliseconds.
func (d *Device) delay(ms uint32) {
	start := d.clock()
	for d.clock()-start < ms {
		runtime.Gosched()
	}
}

// drainInput pops and discards everything buffered on the receive side.
func (d *Device) drainInput() {
	for {
		if _, ok := d.uart.ReadByte(); !ok {
			return
		}
	}
}

// SendCommand discards any stale bytes in both queues and writes cmd
// followed by a single carriage return; the module's command parser is
// line-buffered on CR.
func (d *Device) SendCommand(cmd string) {
	d.uart.FlushTx()
	d.uart.FlushRx()
	d.uart.WriteString(cmd)
	for !d.uart.WriteByte('\r') {
		runtime.Gosched()
	}
	d.log.Debug().Str("cmd", cmd).Msg("command sent")
}

// ExpectResponse collects bytes until a line feed or the deadline and
// reports whether the accumulated line contains expected. Only the first
// line received counts: a later line is never inspected, so a mismatch on
// line one fails the exchange even if a matching line follows. Callers
// that need multi-line scanning use FindHandle's parser instead.
func (d *Device) ExpectResponse(expected string, timeout uint32) error {
	d.uart.FlushRx()
	d.buf = d.buf[:0]

	start := d.clock()
	for d.clock()-start < timeout {
		b, ok := d.uart.ReadByte()
		if !ok {
			runtime.Gosched()
			continue
		}
		if b == '\n' {
			if n := len(d.buf); n > 0 && d.buf[n-1] == '\r' {
				d.buf = d.buf[:n-1]
			}
			if strings.Contains(string(d.buf), expected) {
				return nil
			}
			d.log.Debug().Str("line", string(d.buf)).Str("want", expected).Msg("response mismatch")
			return ErrResponseMismatch
		}
		if len(d.buf) < responseBufSize-1 {
			d.buf = append(d.buf, b)
		}
	}
	return ErrTimeout
}

// EnterCommandMode sends the escape sequence and looks for the module's
// prompt, with or without a trailing carriage return. The mode flag only
// changes on success.
func (d *Device) EnterCommandMode() error {
	d.delay(delayBeforeCmd)
	d.buf = d.buf[:0]
	d.uart.FlushTx()
	d.drainInput()
	d.uart.WriteString(cmdEnterCommandMode)

	start := d.clock()
	for d.clock()-start < cmdModeWindow && d.uart.Buffered() < len(respPrompt) {
		runtime.Gosched()
	}

	n := d.uart.Buffered()
	if n > cap(d.buf) {
		n = cap(d.buf)
	}
	d.buf = d.buf[:n]
	d.buf = d.buf[:d.uart.ReadBytes(d.buf)]

	got := string(d.buf)
	if strings.Contains(got, respPrompt) || strings.Contains(got, respPromptCR) {
		d.setMode(CommandMode)
		return nil
	}
	return ErrNoPrompt
}

// EnterDataMode switches the module back to transparent UART operation.
func (d *Device) EnterDataMode() {
	d.SendCommand(cmdExitCommandMode)
	d.setMode(DataMode)
}

// Reboot restarts the module and waits out the restart window.
func (d *Device) Reboot() error {
	d.SendCommand(cmdReboot)
	if err := d.ExpectResponse(respRebooting, resetCmdTimeout); err != nil {
		return err
	}
	d.delay(resetCmdTimeout)
	return nil
}

// Init brings the module to a known state: reboot directly, or enter
// command mode and retry the reboot exactly once. On success the module is
// back in DataMode.
func (d *Device) Init() error {
	if d.Reboot() == nil {
		d.setMode(DataMode)
		return nil
	}
	if err := d.EnterCommandMode(); err != nil {
		return err
	}
	if err := d.Reboot(); err != nil {
		return err
	}
	d.setMode(DataMode)
	return nil
}

// command sends cmd and waits for the affirmative acknowledgement token.
func (d *Device) command(cmd string, timeout uint32) error {
	d.SendCommand(cmd)
	return d.ExpectResponse(respAOK, timeout)
}

// ClearAllServices removes every GATT service defined on the module.
func (d *Device) ClearAllServices() error {
	return d.command(cmdClearAllServices, defaultCmdTimeout)
}

// StopAdvertising stops the module from advertising.
func (d *Device) StopAdvertising() error {
	return d.command(cmdStopAdv, defaultCmdTimeout)
}

// ClearPermanentAdvertising clears advertising data stored in NVM.
func (d *Device) ClearPermanentAdvertising() error {
	return d.command(cmdClearPermanentAdv, defaultCmdTimeout)
}

// ClearPermanentBeacon clears beacon data stored in NVM.
func (d *Device) ClearPermanentBeacon() error {
	return d.command(cmdClearPermanentBeacon, defaultCmdTimeout)
}

// ClearImmediateAdvertising clears the volatile advertising data.
func (d *Device) ClearImmediateAdvertising() error {
	return d.command(cmdClearImmediateAdv, defaultCmdTimeout)
}

// ClearImmediateBeacon clears the volatile beacon data.
func (d *Device) ClearImmediateBeacon() error {
	return d.command(cmdClearImmediateBeacon, defaultCmdTimeout)
}

// SetSerializedName sets the serialized device name. A name beyond the
// module's limit is truncated, not rejected; the (possibly truncated) name
// is cached for DeviceName.
func (d *Device) SetSerializedName(name string) error {
	if len(name) > MaxSerializedNameLen {
		name = name[:MaxSerializedNameLen]
	}
	d.name = name
	return d.command(cmdSetSerializedName+name, defaultCmdTimeout)
}

// SetSupportedFeatures writes the feature bitmap.
func (d *Device) SetSupportedFeatures(bitmap uint16) error {
	return d.command(fmt.Sprintf("%s%04X", cmdSetSupportedFeatures, bitmap), defaultCmdTimeout)
}

// SetDefaultServices selects the built-in services bitmap.
func (d *Device) SetDefaultServices(bitmap uint8) error {
	return d.command(fmt.Sprintf("%s%02X", cmdSetDefaultServices, bitmap), defaultCmdTimeout)
}

// SetAdvPower sets the advertising power step, clamped to [0, MaxAdvPower].
func (d *Device) SetAdvPower(value uint8) error {
	if value > MaxAdvPower {
		value = MaxAdvPower
	}
	return d.command(fmt.Sprintf("%s%d", cmdSetAdvPower, value), defaultCmdTimeout)
}

// SetServiceUUID defines a service. The UUID must be the bare 4-digit
// public form or the bare 32-digit private form; anything else fails
// before a single byte is written.
func (d *Device) SetServiceUUID(uuid string) error {
	if len(uuid) != publicUUIDLen && len(uuid) != privateUUIDLen {
		return ErrInvalidUUID
	}
	return d.command(cmdDefineServiceUUID+uuid, defaultCmdTimeout)
}

// SetCharacteristicUUID defines a characteristic under the current
// service. octetLen is clamped into [1, 20], the module's payload limit.
func (d *Device) SetCharacteristicUUID(uuid string, property uint8, octetLen uint8) error {
	if len(uuid) != publicUUIDLen && len(uuid) != privateUUIDLen {
		return ErrInvalidUUID
	}
	if octetLen < minCharactLen {
		octetLen = minCharactLen
	} else if octetLen > maxCharactLen {
		octetLen = maxCharactLen
	}
	return d.command(fmt.Sprintf("%s%s,%02X,%02X", cmdDefineCharactUUID, uuid, property, octetLen), charactCmdTimeout)
}

// StartPermanentAdvertising appends an AD structure to the advertisement
// stored in NVM.
func (d *Device) StartPermanentAdvertising(adType uint8, adData string) error {
	return d.command(fmt.Sprintf("%s%02X,%s", cmdStartPermanentAdv, adType, adData), defaultCmdTimeout)
}

// StartCustomAdvertising starts advertising with the given interval.
func (d *Device) StartCustomAdvertising(interval uint16) error {
	return d.command(fmt.Sprintf("%s%04X", cmdStartCustomAdv, interval), defaultCmdTimeout)
}

// StartAdvertising starts advertising with the module defaults.
func (d *Device) StartAdvertising() error {
	return d.command(cmdStartDefaultAdv, defaultCmdTimeout)
}

// StartScanning starts a scan with the module defaults.
func (d *Device) StartScanning() error {
	d.SendCommand(cmdStartDefaultScan)
	return d.ExpectResponse(respScanning, defaultCmdTimeout)
}

// WriteLocalCharacteristic writes value to the characteristic behind
// handle on the module's local GATT server.
func (d *Device) WriteLocalCharacteristic(handle uint16, value string) error {
	return d.command(fmt.Sprintf("%s%04X,%s", cmdWriteLocalCharact, handle, value), defaultCmdTimeout)
}

// ReadLocalCharacteristic reads the characteristic behind handle; the
// value line is retrieved via LastResponse.
func (d *Device) ReadLocalCharacteristic(handle uint16) error {
	d.SendCommand(fmt.Sprintf("%s%04X", cmdReadLocalCharact, handle))
	return d.awaitLine(defaultCmdTimeout)
}

// FirmwareVersion queries the firmware banner into LastResponse.
func (d *Device) FirmwareVersion() error {
	d.SendCommand(cmdDisplayFWVersion)
	return d.awaitLine(defaultCmdTimeout)
}

// ConnectionStatus asks the module whether a peer is connected.
func (d *Device) ConnectionStatus() ConnectionStatus {
	d.SendCommand(cmdGetConnectionStatus)
	start := d.clock()
	for d.clock()-start < defaultCmdTimeout {
		if d.uart.Buffered() > 0 && d.readUntilCR() > 0 {
			if strings.Contains(string(d.buf), respNoConnection) {
				return StatusNotConnected
			}
			return StatusConnected
		}
		runtime.Gosched()
	}
	return StatusUnknown
}

// SendData relays payload bytes in transparent data mode, busy-retrying
// while the TX queue is full.
func (d *Device) SendData(data []byte) {
	for _, b := range data {
		for !d.uart.WriteByte(b) {
			runtime.Gosched()
		}
	}
}

// awaitLine waits for one CR-terminated, non-empty line to land in the
// scratch buffer.
func (d *Device) awaitLine(timeout uint32) error {
	start := d.clock()
	for d.clock()-start < timeout {
		if d.uart.Buffered() > 0 && d.readUntilCR() > 0 {
			return nil
		}
		runtime.Gosched()
	}
	return ErrTimeout
}

// readUntilCR collects bytes into the scratch buffer until a carriage
// return or the read deadline and returns the count collected. The LF of a
// CR LF pair stays queued; the next exchange flushes it.
func (d *Device) readUntilCR() int {
	d.buf = d.buf[:0]
	start := d.clock()
	for len(d.buf) < responseBufSize-1 {
		if d.clock()-start >= readTimeout {
			break
		}
		b, ok := d.uart.ReadByte()
		if !ok {
			runtime.Gosched()
			continue
		}
		if b == '\r' {
			break
		}
		d.buf = append(d.buf, b)
	}
	return len(d.buf)
}
