package internal

import (
	"encoding/hex"
	"strings"
)

// WrapHex returns b as lower-case hex split into lines of perLine bytes, each
// line after the first prefixed with indent.
func WrapHex(b []byte, perLine int, indent string) string {
	if len(b) == 0 {
		return "(none)"
	}
	if perLine <= 0 {
		perLine = len(b)
	}
	var lines []string
	for len(b) > 0 {
		n := min(perLine, len(b))
		lines = append(lines, hex.EncodeToString(b[:n]))
		b = b[n:]
	}
	return strings.Join(lines, "\n"+indent)
}
