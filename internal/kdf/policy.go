// Package kdf implements the two password-based key derivation functions
// used by encrypted PKCS#8 keys: the PKCS#12 KDF from RFC 7292 Appendix B and
// PBKDF2 from RFC 8018. Both take the digest as a crypto.Hash.
package kdf

import (
	"fmt"

	// Register every digest a supported suite or PRF can name.
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/sensiblebit/pbekit/internal/pbeerr"
)

// MaxIterations is the largest iteration count accepted from an encrypted
// key. Windows caps PKCS#12 iterations at 600,000; this limit leaves room for
// unusual but legitimate files while bounding the work an attacker-supplied
// container can demand.
const MaxIterations = 100_000_000

// MaxOutputLength is the largest amount of key material a single derivation
// may produce, in bytes.
const MaxOutputLength = 1024

// IterationsAcceptable reports whether n is a usable iteration count.
func IterationsAcceptable(n uint64) bool {
	return n > 0 && n <= MaxIterations
}

// CheckIterations returns ErrUnacceptableIterationCount wrapped with the
// offending value when n fails IterationsAcceptable.
func CheckIterations(n uint64) error {
	if !IterationsAcceptable(n) {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", pbeerr.ErrUnacceptableIterationCount, n, MaxIterations)
	}
	return nil
}

func checkOutputLength(n int) error {
	if n < 0 || n > MaxOutputLength {
		return fmt.Errorf("%w: %d bytes of key material requested (limit %d)", pbeerr.ErrAllocationFailure, n, MaxOutputLength)
	}
	return nil
}
