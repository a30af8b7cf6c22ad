package rn4871

// This file implements the UUID string forms accepted by the module's
// configuration commands: a 4-hex-digit public (16-bit) form and a
// 32-hex-digit private (128-bit) form.

import "strings"

// NormalizeUUID converts s into the bare uppercase hex form the module's
// PS and PC commands take. It accepts 4 or 32 hex digits, with the
// canonical 8-4-4-4-12 dashed rendering tolerated on input.
func NormalizeUUID(s string) (string, error) {
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		s = strings.ReplaceAll(s, "-", "")
	}
	if len(s) != publicUUIDLen && len(s) != privateUUIDLen {
		return "", ErrInvalidUUID
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return "", ErrInvalidUUID
		}
	}
	return strings.ToUpper(s), nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f'
}
