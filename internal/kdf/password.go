package kdf

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/sensiblebit/pbekit/internal/pbeerr"
)

// BMPPassword converts a UTF-8 password to the big-endian UCS-2 form with a
// two-byte NUL terminator that the PKCS#12 KDF expects. The empty password
// encodes to {0, 0}. Code points above U+FFFF are rejected rather than
// written as surrogate pairs, matching OpenSSL 1.x, BoringSSL and go-pkcs12,
// so a key written here opens with the same password elsewhere.
//
// The input is decoded rune by rune rather than through a string conversion
// so that the caller's buffer stays the only copy that needs wiping.
func BMPPassword(password []byte) ([]byte, error) {
	if !utf8.Valid(password) {
		return nil, fmt.Errorf("%w: password is not valid UTF-8", pbeerr.ErrInvalidPassword)
	}

	out := make([]byte, 0, 2*len(password)+2)
	for rest := password; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		rest = rest[size:]
		if r > 0xFFFF {
			clear(out)
			return nil, fmt.Errorf("%w: password contains %U outside the Basic Multilingual Plane", pbeerr.ErrInvalidPassword, r)
		}
		out = binary.BigEndian.AppendUint16(out, uint16(r))
	}
	return append(out, 0, 0), nil
}
