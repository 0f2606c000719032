package pbekit

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/sensiblebit/pbekit/internal/secret"
)

// PKCS8Options selects how EncryptPKCS8PrivateKey protects a key. A nil
// *PKCS8Options means AES-256-CBC with DefaultEncrypter settings.
type PKCS8Options struct {
	Cipher     CipherKind
	Iterations uint32
	PRF        crypto.Hash
	SaltLen    int
	Rand       io.Reader
}

func (o *PKCS8Options) encrypter() (CipherKind, uint32, Encrypter) {
	kind, iterations := AES256CBC, uint32(DefaultIterations)
	e := DefaultEncrypter
	if o == nil {
		return kind, iterations, e
	}
	if o.Cipher != 0 {
		kind = o.Cipher
	}
	if o.Iterations != 0 {
		iterations = o.Iterations
	}
	if o.PRF != 0 {
		e.PRF = o.PRF
	}
	if o.SaltLen != 0 {
		e.SaltLen = o.SaltLen
	}
	e.Rand = o.Rand
	return kind, iterations, e
}

// ParseEncryptedPKCS8 splits a DER EncryptedPrivateKeyInfo into its
// encryption AlgorithmIdentifier (still DER) and the encrypted data. Both
// alias der.
func ParseEncryptedPKCS8(der []byte) (algorithm, encrypted []byte, err error) {
	input := cryptobyte.String(der)
	var seq, alg cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, nil, fmt.Errorf("%w: reading EncryptedPrivateKeyInfo", ErrMalformedParameters)
	}
	if !seq.ReadASN1Element(&alg, cryptobyte_asn1.SEQUENCE) {
		return nil, nil, fmt.Errorf("%w: reading encryptionAlgorithm", ErrMalformedParameters)
	}
	if !seq.ReadASN1Bytes(&encrypted, cryptobyte_asn1.OCTET_STRING) || !seq.Empty() {
		return nil, nil, fmt.Errorf("%w: reading encryptedData", ErrMalformedParameters)
	}
	return alg, encrypted, nil
}

// MarshalEncryptedPKCS8 builds a DER EncryptedPrivateKeyInfo.
func MarshalEncryptedPKCS8(algorithm, encrypted []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(algorithm)
		b.AddASN1OctetString(encrypted)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding EncryptedPrivateKeyInfo: %w", err)
	}
	return der, nil
}

// DecryptPKCS8 decrypts a DER EncryptedPrivateKeyInfo and returns the
// unencrypted PKCS#8 PrivateKeyInfo DER.
func DecryptPKCS8(der, password []byte) ([]byte, error) {
	alg, encrypted, err := ParseEncryptedPKCS8(der)
	if err != nil {
		return nil, err
	}
	plain, err := Decrypt(alg, password, encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	return plain, nil
}

// DecryptPKCS8PrivateKey decrypts a DER EncryptedPrivateKeyInfo and parses
// the private key inside it.
func DecryptPKCS8PrivateKey(der, password []byte) (crypto.PrivateKey, error) {
	plain, err := DecryptPKCS8(der, password)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(plain)

	key, err := x509.ParsePKCS8PrivateKey(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing decrypted PKCS#8 key: %w", err)
	}
	return normalizeKey(key), nil
}

// EncryptPKCS8 wraps an unencrypted PKCS#8 PrivateKeyInfo in a PBES2
// EncryptedPrivateKeyInfo and returns the DER.
func EncryptPKCS8(plain, password []byte, opts *PKCS8Options) ([]byte, error) {
	kind, iterations, e := opts.encrypter()
	alg, encrypted, err := e.Encrypt(kind, iterations, password, plain)
	if err != nil {
		return nil, fmt.Errorf("encrypting private key: %w", err)
	}
	return MarshalEncryptedPKCS8(alg, encrypted)
}

// EncryptPKCS8PrivateKey marshals key to PKCS#8 and encrypts it with
// EncryptPKCS8.
func EncryptPKCS8PrivateKey(key crypto.PrivateKey, password []byte, opts *PKCS8Options) ([]byte, error) {
	plain, err := x509.MarshalPKCS8PrivateKey(normalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("marshaling private key to PKCS#8: %w", err)
	}
	defer secret.Wipe(plain)
	return EncryptPKCS8(plain, password, opts)
}

// MarshalEncryptedPrivateKeyToPEM encrypts key and encodes the result as an
// "ENCRYPTED PRIVATE KEY" PEM block.
func MarshalEncryptedPrivateKeyToPEM(key crypto.PrivateKey, password []byte, opts *PKCS8Options) (string, error) {
	der, err := EncryptPKCS8PrivateKey(key, password, opts)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "ENCRYPTED PRIVATE KEY",
		Bytes: der,
	})), nil
}
