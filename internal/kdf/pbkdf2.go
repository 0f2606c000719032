package kdf

import (
	"crypto"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sensiblebit/pbekit/internal/pbeerr"
)

// PBKDF2 derives outLen bytes with PBKDF2 using HMAC over prf. The iteration
// count, output length, and PRF are all validated before any hashing starts.
func PBKDF2(password, salt []byte, iterations uint64, outLen int, prf crypto.Hash) ([]byte, error) {
	if err := CheckIterations(iterations); err != nil {
		return nil, err
	}
	if outLen == 0 {
		return nil, fmt.Errorf("%w: zero-length PBKDF2 output requested", pbeerr.ErrAllocationFailure)
	}
	if err := checkOutputLength(outLen); err != nil {
		return nil, err
	}
	if !prf.Available() {
		return nil, fmt.Errorf("%w: HMAC-%v is not linked into the binary", pbeerr.ErrDigestFailure, prf)
	}
	return pbkdf2.Key(password, salt, int(iterations), outLen, prf.New), nil
}
