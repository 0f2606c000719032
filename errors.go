package pbekit

import "github.com/sensiblebit/pbekit/internal/pbeerr"

// Error kinds returned by this package. Errors are wrapped with context, so
// compare with errors.Is.
var (
	ErrMalformedParameters        = pbeerr.ErrMalformedParameters
	ErrUnsupportedAlgorithm       = pbeerr.ErrUnsupportedAlgorithm
	ErrUnacceptableIterationCount = pbeerr.ErrUnacceptableIterationCount
	ErrKeyLengthMismatch          = pbeerr.ErrKeyLengthMismatch
	ErrCipherFailure              = pbeerr.ErrCipherFailure
	ErrDigestFailure              = pbeerr.ErrDigestFailure
	ErrAllocationFailure          = pbeerr.ErrAllocationFailure
	ErrInvalidPassword            = pbeerr.ErrInvalidPassword
)
