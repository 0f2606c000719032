// Package pbeerr defines the error kinds shared by the key derivation,
// parameter decoding, and cipher layers. The root pbekit package re-exports
// every sentinel so callers never import this package directly.
package pbeerr

import "errors"

var (
	// ErrMalformedParameters reports an ASN.1 decode failure: wrong tag,
	// truncated input, trailing data, or an out-of-range integer.
	ErrMalformedParameters = errors.New("pbe: malformed parameters")

	// ErrUnsupportedAlgorithm reports an OID that names no known PBE suite,
	// KDF, PRF, or cipher.
	ErrUnsupportedAlgorithm = errors.New("pbe: unsupported algorithm")

	// ErrUnacceptableIterationCount reports an iteration count that is zero,
	// negative, or above the policy limit.
	ErrUnacceptableIterationCount = errors.New("pbe: unacceptable iteration count")

	// ErrKeyLengthMismatch reports key or IV material whose length does not
	// match what the selected cipher requires.
	ErrKeyLengthMismatch = errors.New("pbe: key length mismatch")

	// ErrCipherFailure reports a failure from the cipher itself, such as bad
	// padding or a ciphertext that is not a whole number of blocks.
	ErrCipherFailure = errors.New("pbe: cipher failure")

	// ErrDigestFailure reports a digest that is unavailable in this build.
	ErrDigestFailure = errors.New("pbe: digest failure")

	// ErrInvalidPassword reports a password that has no BMPString form:
	// invalid UTF-8 or a code point above U+FFFF. It describes the
	// password, not the encrypted data.
	ErrInvalidPassword = errors.New("pbe: invalid password encoding")

	// ErrAllocationFailure reports a request for more derived material than
	// the derivation functions are willing to allocate.
	ErrAllocationFailure = errors.New("pbe: allocation failure")
)
