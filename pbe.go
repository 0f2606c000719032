// Package pbekit resolves password-based encryption schemes for encrypted
// PKCS#8 private keys. It decrypts both legacy PKCS#12 PBE schemes and PBES2
// with PBKDF2, and encrypts with PBES2 only. Helpers for the surrounding
// EncryptedPrivateKeyInfo container and for pulling keys out of PKCS#12 and
// JKS stores sit alongside.
package pbekit

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	"github.com/sensiblebit/pbekit/internal/kdf"
	"github.com/sensiblebit/pbekit/internal/pbeasn1"
	"github.com/sensiblebit/pbekit/internal/secret"
)

const (
	// DefaultSaltLen is the PBKDF2 salt length used when an Encrypter does
	// not set one.
	DefaultSaltLen = 8

	// DefaultIterations is the PBKDF2 iteration count used by
	// EncryptPKCS8PrivateKey when the options leave it at zero.
	DefaultIterations = 2048

	// MaxIterations is the largest iteration count Decrypt accepts.
	MaxIterations = kdf.MaxIterations

	// MaxSaltLen is the largest salt EncryptInit generates.
	MaxSaltLen = kdf.MaxOutputLength
)

// Decrypt decrypts in using the encryption scheme described by algorithm, a
// DER AlgorithmIdentifier, and password. The plaintext is returned in a new
// buffer. No partial output is returned on failure.
func Decrypt(algorithm, password, in []byte) ([]byte, error) {
	alg, err := pbeasn1.ParseAlgorithmIdentifier(algorithm)
	if err != nil {
		return nil, fmt.Errorf("parsing encryption algorithm: %w", err)
	}
	suite := lookupSuite(alg.OID)
	if suite == nil {
		return nil, fmt.Errorf("%w: encryption algorithm %s", ErrUnsupportedAlgorithm, pbeasn1.DottedOID(alg.OID))
	}
	slog.Debug("resolved PBE scheme", "scheme", suite.name)

	var ctx CipherContext
	defer ctx.Wipe()
	if err := suite.decryptInit(suite, &ctx, password, alg.Params); err != nil {
		return nil, fmt.Errorf("initializing %s: %w", suite.name, err)
	}
	out, err := ctx.Final(in)
	if err != nil {
		return nil, fmt.Errorf("decrypting with %s: %w", suite.name, err)
	}
	return out, nil
}

// Encrypter holds the PBES2 choices that EncryptInit does not take as
// arguments. The zero value is usable.
type Encrypter struct {
	// PRF is the PBKDF2 pseudo-random function digest. Zero means SHA-256.
	PRF crypto.Hash

	// SaltLen is the length of generated salts. Zero means DefaultSaltLen;
	// values above MaxSaltLen are rejected.
	SaltLen int

	// Rand is the salt source. Nil means crypto/rand.Reader.
	Rand io.Reader
}

// DefaultEncrypter is used by the package-level EncryptInit and Encrypt.
var DefaultEncrypter = Encrypter{PRF: crypto.SHA256, SaltLen: DefaultSaltLen}

// EncryptInit prepares PBES2 encryption with PBKDF2 and the given cipher.
// An empty salt is replaced by SaltLen random bytes. The key and IV are the
// first KeySize()+IVSize() bytes of the PBKDF2 output, so apart from salt
// generation the result depends only on the arguments. It returns the DER
// AlgorithmIdentifier describing the scheme and a context ready for Final.
func (e Encrypter) EncryptInit(kind CipherKind, iterations uint32, password, salt []byte) ([]byte, *CipherContext, error) {
	info, ok := kind.info()
	if !ok || info.pbes2OID == nil {
		return nil, nil, fmt.Errorf("%w: %v cannot be used for PBES2 encryption", ErrUnsupportedAlgorithm, kind)
	}
	prf := e.PRF
	if prf == 0 {
		prf = crypto.SHA256
	}
	if _, ok := pbeasn1.PRFOID(prf); !ok {
		return nil, nil, fmt.Errorf("%w: PBKDF2 PRF %v", ErrUnsupportedAlgorithm, prf)
	}

	if len(salt) == 0 {
		n := e.SaltLen
		if n <= 0 {
			n = DefaultSaltLen
		}
		if n > MaxSaltLen {
			return nil, nil, fmt.Errorf("%w: salt length %d exceeds %d", ErrAllocationFailure, n, MaxSaltLen)
		}
		r := e.Rand
		if r == nil {
			r = rand.Reader
		}
		salt = make([]byte, n)
		if _, err := io.ReadFull(r, salt); err != nil {
			return nil, nil, fmt.Errorf("generating salt: %w", err)
		}
	}

	material, err := kdf.PBKDF2(password, salt, uint64(iterations), info.keySize+info.ivSize, prf)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving key: %w", err)
	}
	defer secret.Wipe(material)
	key, iv := material[:info.keySize], material[info.keySize:]

	algorithm, err := pbeasn1.MarshalPBES2(info.pbes2OID, iv, salt, uint64(iterations), prf)
	if err != nil {
		return nil, nil, err
	}

	ctx := new(CipherContext)
	if err := ctx.init(kind, key, iv, true); err != nil {
		return nil, nil, err
	}
	slog.Debug("initialized PBES2 encryption", "cipher", kind, "prf", prf, "iterations", iterations)
	return algorithm, ctx, nil
}

// Encrypt runs EncryptInit and encrypts plaintext in one step.
func (e Encrypter) Encrypt(kind CipherKind, iterations uint32, password, plaintext []byte) (algorithm, ciphertext []byte, err error) {
	algorithm, ctx, err := e.EncryptInit(kind, iterations, password, nil)
	if err != nil {
		return nil, nil, err
	}
	defer ctx.Wipe()
	ciphertext, err = ctx.Final(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypting with %v: %w", kind, err)
	}
	return algorithm, ciphertext, nil
}

// EncryptInit calls DefaultEncrypter.EncryptInit.
func EncryptInit(kind CipherKind, iterations uint32, password, salt []byte) ([]byte, *CipherContext, error) {
	return DefaultEncrypter.EncryptInit(kind, iterations, password, salt)
}

// Encrypt calls DefaultEncrypter.Encrypt.
func Encrypt(kind CipherKind, iterations uint32, password, plaintext []byte) (algorithm, ciphertext []byte, err error) {
	return DefaultEncrypter.Encrypt(kind, iterations, password, plaintext)
}
