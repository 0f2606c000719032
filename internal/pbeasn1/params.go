package pbeasn1

import (
	"bytes"
	"crypto"
	"fmt"
	"math"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/sensiblebit/pbekit/internal/kdf"
	"github.com/sensiblebit/pbekit/internal/pbeerr"
)

// LegacySaltLen is the salt length carried by pkcs-12PbeParams.
const LegacySaltLen = 8

// AlgorithmIdentifier is a decoded AlgorithmIdentifier. OID holds the raw
// content octets of the algorithm OID and Params everything that follows it
// inside the SEQUENCE, which may be empty. Both alias the input buffer.
type AlgorithmIdentifier struct {
	OID    []byte
	Params cryptobyte.String
}

// PBES2Params is the decoded PBES2-params structure.
type PBES2Params struct {
	KDF              AlgorithmIdentifier
	EncryptionScheme AlgorithmIdentifier
}

// PBKDF2Params is the decoded PBKDF2-params structure. PRF is SHA-1 when the
// encoding omits it.
type PBKDF2Params struct {
	Salt         []byte
	Iterations   uint64
	KeyLength    uint32
	HasKeyLength bool
	PRF          crypto.Hash
}

// PBEParams is the decoded pkcs-12PbeParams structure.
type PBEParams struct {
	Salt       []byte
	Iterations uint32
}

var asn1NULL = []byte{0x05, 0x00}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pbeerr.ErrMalformedParameters, fmt.Sprintf(format, args...))
}

// ParseAlgorithmIdentifier decodes der as exactly one AlgorithmIdentifier.
func ParseAlgorithmIdentifier(der []byte) (AlgorithmIdentifier, error) {
	input := cryptobyte.String(der)
	alg, err := ReadAlgorithmIdentifier(&input)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	if !input.Empty() {
		return AlgorithmIdentifier{}, malformed("%d trailing bytes after AlgorithmIdentifier", len(input))
	}
	return alg, nil
}

// ReadAlgorithmIdentifier reads one AlgorithmIdentifier from s and advances
// past it.
func ReadAlgorithmIdentifier(s *cryptobyte.String) (AlgorithmIdentifier, error) {
	var seq, oid cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return AlgorithmIdentifier{}, malformed("reading AlgorithmIdentifier SEQUENCE")
	}
	if !seq.ReadASN1(&oid, cryptobyte_asn1.OBJECT_IDENTIFIER) || len(oid) == 0 {
		return AlgorithmIdentifier{}, malformed("reading algorithm OID")
	}
	return AlgorithmIdentifier{OID: oid, Params: seq}, nil
}

// readOnlySequence requires params to be a single SEQUENCE and returns its
// contents.
func readOnlySequence(params cryptobyte.String, what string) (cryptobyte.String, error) {
	var seq cryptobyte.String
	if !params.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, malformed("reading %s SEQUENCE", what)
	}
	if !params.Empty() {
		return nil, malformed("trailing data after %s", what)
	}
	return seq, nil
}

// ParsePBES2Params decodes the parameters of a PBES2 AlgorithmIdentifier.
func ParsePBES2Params(params cryptobyte.String) (PBES2Params, error) {
	seq, err := readOnlySequence(params, "PBES2 parameters")
	if err != nil {
		return PBES2Params{}, err
	}

	var p PBES2Params
	if p.KDF, err = ReadAlgorithmIdentifier(&seq); err != nil {
		return PBES2Params{}, fmt.Errorf("reading PBES2 key derivation function: %w", err)
	}
	if p.EncryptionScheme, err = ReadAlgorithmIdentifier(&seq); err != nil {
		return PBES2Params{}, fmt.Errorf("reading PBES2 encryption scheme: %w", err)
	}
	if !seq.Empty() {
		return PBES2Params{}, malformed("trailing data inside PBES2 parameters")
	}
	return p, nil
}

// ParsePBKDF2Params decodes PBKDF2-params. Only the OCTET STRING form of the
// salt is accepted. The iteration count is checked against the derivation
// policy here so that no hashing happens for an unacceptable count.
func ParsePBKDF2Params(params cryptobyte.String) (PBKDF2Params, error) {
	seq, err := readOnlySequence(params, "PBKDF2 parameters")
	if err != nil {
		return PBKDF2Params{}, err
	}

	var p PBKDF2Params
	var salt cryptobyte.String
	if !seq.ReadASN1(&salt, cryptobyte_asn1.OCTET_STRING) {
		return PBKDF2Params{}, malformed("reading PBKDF2 salt")
	}
	p.Salt = salt

	if p.Iterations, err = readIterations(&seq); err != nil {
		return PBKDF2Params{}, err
	}

	if seq.PeekASN1Tag(cryptobyte_asn1.INTEGER) {
		var keyLen uint64
		if !seq.ReadASN1Integer(&keyLen) || keyLen > math.MaxUint32 {
			return PBKDF2Params{}, malformed("reading PBKDF2 keyLength")
		}
		p.KeyLength, p.HasKeyLength = uint32(keyLen), true
	}

	p.PRF = crypto.SHA1
	if !seq.Empty() {
		prf, err := ReadAlgorithmIdentifier(&seq)
		if err != nil {
			return PBKDF2Params{}, fmt.Errorf("reading PBKDF2 PRF: %w", err)
		}
		h, ok := PRFHash(prf.OID)
		if !ok {
			return PBKDF2Params{}, fmt.Errorf("%w: PBKDF2 PRF %s", pbeerr.ErrUnsupportedAlgorithm, DottedOID(prf.OID))
		}
		if len(prf.Params) != 0 && !bytes.Equal(prf.Params, asn1NULL) {
			return PBKDF2Params{}, malformed("PBKDF2 PRF parameters must be absent or NULL")
		}
		p.PRF = h
	}

	if !seq.Empty() {
		return PBKDF2Params{}, malformed("trailing data inside PBKDF2 parameters")
	}
	return p, nil
}

// ParsePBEParams decodes the pkcs-12PbeParams of a legacy PKCS#12 scheme.
func ParsePBEParams(params cryptobyte.String) (PBEParams, error) {
	seq, err := readOnlySequence(params, "PBE parameters")
	if err != nil {
		return PBEParams{}, err
	}

	var p PBEParams
	var salt cryptobyte.String
	if !seq.ReadASN1(&salt, cryptobyte_asn1.OCTET_STRING) {
		return PBEParams{}, malformed("reading PBE salt")
	}
	if len(salt) != LegacySaltLen {
		return PBEParams{}, malformed("PBE salt is %d bytes, want %d", len(salt), LegacySaltLen)
	}
	p.Salt = salt

	n, err := readIterations(&seq)
	if err != nil {
		return PBEParams{}, err
	}
	// MaxIterations fits in 32 bits.
	p.Iterations = uint32(n)

	if !seq.Empty() {
		return PBEParams{}, malformed("trailing data inside PBE parameters")
	}
	return p, nil
}

// readIterations reads an iteration-count INTEGER. Any well-formed integer
// outside the derivation policy, including zero and negatives, is reported as
// ErrUnacceptableIterationCount rather than as malformed input.
func readIterations(s *cryptobyte.String) (uint64, error) {
	n := new(big.Int)
	if !s.ReadASN1Integer(n) {
		return 0, malformed("reading iteration count")
	}
	if n.Sign() <= 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s", pbeerr.ErrUnacceptableIterationCount, n)
	}
	if err := kdf.CheckIterations(n.Uint64()); err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ParseIV decodes the OCTET STRING IV carried in a CBC encryption scheme's
// parameters and requires it to be exactly size bytes.
func ParseIV(params cryptobyte.String, size int) ([]byte, error) {
	var iv cryptobyte.String
	if !params.ReadASN1(&iv, cryptobyte_asn1.OCTET_STRING) {
		return nil, malformed("reading IV")
	}
	if !params.Empty() {
		return nil, malformed("trailing data after IV")
	}
	if len(iv) != size {
		return nil, fmt.Errorf("%w: IV is %d bytes, cipher needs %d", pbeerr.ErrKeyLengthMismatch, len(iv), size)
	}
	return iv, nil
}

func addOID(b *cryptobyte.Builder, oid []byte) {
	b.AddASN1(cryptobyte_asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(oid)
	})
}

// MarshalPBES2 encodes a complete PBES2 AlgorithmIdentifier with PBKDF2 as
// the KDF and cipherOID as the encryption scheme. The PRF is omitted when it
// is hmacWithSHA1, its DEFAULT, and keyLength is never written.
func MarshalPBES2(cipherOID, iv, salt []byte, iterations uint64, prf crypto.Hash) ([]byte, error) {
	prfOID, ok := PRFOID(prf)
	if !ok {
		return nil, fmt.Errorf("%w: no HMAC OID for %v", pbeerr.ErrUnsupportedAlgorithm, prf)
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addOID(b, OIDPBES2)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				addOID(b, OIDPBKDF2)
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1OctetString(salt)
					b.AddASN1Uint64(iterations)
					if prf != crypto.SHA1 {
						b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
							addOID(b, prfOID)
							b.AddASN1NULL()
						})
					}
				})
			})
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				addOID(b, cipherOID)
				b.AddASN1OctetString(iv)
			})
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding PBES2 AlgorithmIdentifier: %w", err)
	}
	return der, nil
}

// MarshalPBE encodes a legacy PKCS#12 PBE AlgorithmIdentifier. Encryption
// never produces these; decoders and tests do.
func MarshalPBE(oid, salt []byte, iterations uint32) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addOID(b, oid)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(salt)
			b.AddASN1Uint64(uint64(iterations))
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding PBE AlgorithmIdentifier: %w", err)
	}
	return der, nil
}
