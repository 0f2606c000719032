package kdf

import (
	"crypto"
	"fmt"

	"github.com/sensiblebit/pbekit/internal/pbeerr"
	"github.com/sensiblebit/pbekit/internal/secret"
)

// ID selects which kind of material the PKCS#12 KDF produces. It is the byte
// value that fills the diversifier block.
type ID byte

const (
	KeyID ID = 1
	IVID  ID = 2
	MACID ID = 3
)

func (id ID) String() string {
	switch id {
	case KeyID:
		return "key"
	case IVID:
		return "iv"
	case MACID:
		return "mac"
	default:
		return fmt.Sprintf("ID(%d)", byte(id))
	}
}

// PKCS12 runs the PKCS#12 key derivation function of RFC 7292 Appendix B and
// returns outLen bytes. The password must already be in BMPPassword form.
// An iteration count of zero is treated as one.
func PKCS12(password, salt []byte, id ID, iterations uint32, outLen int, h crypto.Hash) ([]byte, error) {
	if err := checkOutputLength(outLen); err != nil {
		return nil, err
	}
	if !h.Available() {
		return nil, fmt.Errorf("%w: %v is not linked into the binary", pbeerr.ErrDigestFailure, h)
	}

	d := h.New()
	u, v := d.Size(), d.BlockSize()

	diversifier := make([]byte, v)
	for i := range diversifier {
		diversifier[i] = byte(id)
	}

	// I = S || P, each tiled to a whole number of v-byte blocks.
	s := fillBlocks(salt, v)
	p := fillBlocks(password, v)
	I := make([]byte, 0, len(s)+len(p))
	I = append(I, s...)
	I = append(I, p...)
	defer secret.Wipe(I, p)

	out := make([]byte, 0, outLen)
	a := make([]byte, 0, u)
	b := make([]byte, v)
	defer secret.Wipe(a[:u], b)

	for len(out) < outLen {
		d.Reset()
		d.Write(diversifier)
		d.Write(I)
		a = d.Sum(a[:0])
		for n := uint32(1); n < iterations; n++ {
			d.Reset()
			d.Write(a)
			a = d.Sum(a[:0])
		}

		out = append(out, a[:min(u, outLen-len(out))]...)
		if len(out) == outLen {
			break
		}

		for j := range b {
			b[j] = a[j%u]
		}
		for j := 0; j < len(I); j += v {
			addPlusOne(I[j:j+v], b)
		}
	}

	return out, nil
}

// fillBlocks repeats pattern until it fills the smallest multiple of v that
// holds it. An empty pattern stays empty.
func fillBlocks(pattern []byte, v int) []byte {
	if len(pattern) == 0 {
		return nil
	}
	n := v * ((len(pattern) + v - 1) / v)
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

// addPlusOne sets block = (block + b + 1) mod 2^(8*len(block)). Both slices
// hold big-endian integers of the same length.
func addPlusOne(block, b []byte) {
	carry := uint16(1)
	for k := len(block) - 1; k >= 0; k-- {
		carry += uint16(block[k]) + uint16(b[k])
		block[k] = byte(carry)
		carry >>= 8
	}
}
