package rn4871

import (
	"runtime"
	"strings"
)

// FindHandle issues the LS listing and resolves the 16-bit handle of the
// characteristic matching uuid and property. Handles are resolved from a
// live listing on every call, never cached. Zero means not found; the
// protocol never assigns handle zero.
func (d *Device) FindHandle(uuid string, property uint8) uint16 {
	d.SendCommand(cmdListServicesAndChars)
	d.delay(lsSettleDelay)
	return d.parseListing(uuid, property)
}

// parseListing consumes the streamed listing byte by byte. A CR
// immediately followed by LF delimits a line; a lone CR or a stray LF is
// ordinary content, which tolerates partial frames. Scanning stops at the
// literal END line or the deadline, and an unterminated trailing line is
// still evaluated once. When a UUID repeats, the last matching line wins.
func (d *Device) parseListing(uuid string, property uint8) uint16 {
	d.uart.FlushRx()
	d.buf = d.buf[:0]

	var (
		found uint16
		gotCR bool
		end   bool
	)
	start := d.clock()
	for d.clock()-start < defaultCmdTimeout && !end {
		b, ok := d.uart.ReadByte()
		if !ok {
			runtime.Gosched()
			continue
		}
		switch {
		case b == '\r':
			gotCR = true
		case b == '\n' && gotCR:
			line := string(d.buf)
			if len(line) > 0 {
				if h, ok := matchListingLine(line, uuid, property); ok {
					found = h
				}
				if line == respEndOfListing {
					end = true
				}
			}
			d.buf = d.buf[:0]
			gotCR = false
		default:
			if gotCR {
				if len(d.buf) < responseBufSize-1 {
					d.buf = append(d.buf, '\r')
				}
				gotCR = false
			}
			if len(d.buf) < responseBufSize-1 {
				d.buf = append(d.buf, b)
			}
		}
	}

	if len(d.buf) > 0 && !end {
		if h, ok := matchListingLine(string(d.buf), uuid, property); ok {
			found = h
		}
	}
	return found
}

// matchListingLine decodes one `<uuid>,<4-hex handle>,<2-hex property>`
// line. The handle is the first 4 characters after the comma following the
// UUID and the property the first 2 after the next comma; a non-hex
// character forces that field to zero without aborting the scan, so a
// handle field shorter than 4 digits decodes through its trailing comma
// to zero rather than being skipped.
func matchListingLine(line, uuid string, property uint8) (uint16, bool) {
	idx := strings.Index(line, uuid)
	if idx < 0 {
		return 0, false
	}
	rest := line[idx+len(uuid):]
	c1 := strings.IndexByte(rest, ',')
	if c1 < 0 || len(rest)-c1-1 < 4 {
		return 0, false
	}
	handleField := rest[c1+1:]
	handle := parseHex(handleField[:4])
	c2 := strings.IndexByte(handleField, ',')
	if c2 < 0 || len(handleField)-c2-1 < 2 {
		return 0, false
	}
	if uint8(parseHex(handleField[c2+1:c2+3])) != property {
		return 0, false
	}
	return handle, true
}

// parseHex decodes s as big-endian hex; any non-hex character yields zero.
func parseHex(s string) uint16 {
	var v uint16
	for i := 0; i < len(s); i++ {
		c := s[i]
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint16(c - '0')
		case c >= 'A' && c <= 'F':
			v |= uint16(c-'A') + 10
		case c >= 'a' && c <= 'f':
			v |= uint16(c-'a') + 10
		default:
			return 0
		}
	}
	return v
}
