package pbekit

import (
	"bytes"
	"crypto"
	"fmt"

	"github.com/sensiblebit/pbekit/internal/pbeasn1"
)

// KDF names the key derivation function of a scheme.
type KDF string

const (
	KDFPKCS12 KDF = "PKCS#12"
	KDFPBKDF2 KDF = "PBKDF2"
)

// Scheme describes the encryption scheme named by an AlgorithmIdentifier
// without deriving any key material.
type Scheme struct {
	Name       string
	OID        string
	KDF        KDF
	Digest     crypto.Hash
	Cipher     CipherKind
	Iterations uint64
	Salt       []byte
	IV         []byte
	// KeyLength is the PBKDF2 keyLength field, 0 when absent.
	KeyLength uint32
}

// DescribeAlgorithm decodes and validates algorithm with the same decoding
// and checks as Decrypt, stopping short of key derivation, and reports what
// it found. For legacy schemes Digest is the KDF hash; for PBES2 it is the
// PBKDF2 PRF.
func DescribeAlgorithm(algorithm []byte) (*Scheme, error) {
	alg, err := pbeasn1.ParseAlgorithmIdentifier(algorithm)
	if err != nil {
		return nil, fmt.Errorf("parsing encryption algorithm: %w", err)
	}
	suite := lookupSuite(alg.OID)
	if suite == nil {
		return nil, fmt.Errorf("%w: encryption algorithm %s", ErrUnsupportedAlgorithm, pbeasn1.DottedOID(alg.OID))
	}

	s := &Scheme{Name: suite.name, OID: pbeasn1.DottedOID(alg.OID)}
	if !bytes.Equal(suite.oid, pbeasn1.OIDPBES2) {
		p, err := pbeasn1.ParsePBEParams(alg.Params)
		if err != nil {
			return nil, fmt.Errorf("decoding PBE parameters: %w", err)
		}
		s.KDF = KDFPKCS12
		s.Digest = suite.digest
		s.Cipher = suite.cipher
		s.Iterations = uint64(p.Iterations)
		s.Salt = bytes.Clone(p.Salt)
		return s, nil
	}

	kind, kp, iv, err := decodePBES2(alg.Params)
	if err != nil {
		return nil, err
	}

	s.KDF = KDFPBKDF2
	s.Digest = kp.PRF
	s.Cipher = kind
	s.Iterations = kp.Iterations
	s.Salt = bytes.Clone(kp.Salt)
	s.IV = bytes.Clone(iv)
	s.KeyLength = kp.KeyLength
	return s, nil
}
