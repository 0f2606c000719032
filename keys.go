package pbekit

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// normalizeKey converts non-standard private key representations to their
// canonical Go form. Currently this dereferences *ed25519.PrivateKey (returned
// by ssh.ParseRawPrivateKey) to the value type ed25519.PrivateKey, ensuring
// downstream type switches only need one case.
func normalizeKey(key crypto.PrivateKey) crypto.PrivateKey {
	if ptr, ok := key.(*ed25519.PrivateKey); ok {
		return *ptr
	}
	return key
}

// ParsePrivateKeyDER parses an unencrypted DER private key, trying PKCS#8,
// then PKCS#1, then SEC 1 EC.
func ParsePrivateKeyDER(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return normalizeKey(key), nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("parsing DER private key with any known format")
}

// ParsePEMPrivateKey parses an unencrypted PEM private key (PKCS#1, PKCS#8,
// EC, or OpenSSH). "PRIVATE KEY" blocks fall back to the PKCS#1 and EC
// parsers to handle mislabeled keys. "ENCRYPTED PRIVATE KEY" blocks need
// ParsePEMPrivateKeyWithPasswords.
func ParsePEMPrivateKey(pemData []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found in private key data")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := ParsePrivateKeyDER(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PRIVATE KEY block: %w", err)
		}
		return key, nil
	case "ENCRYPTED PRIVATE KEY":
		return nil, errors.New("private key is encrypted; a password is required")
	case "OPENSSH PRIVATE KEY":
		key, err := ssh.ParseRawPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("parsing OpenSSH private key: %w", err)
		}
		return normalizeKey(key), nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// DefaultPasswords returns the list of passwords tried by default when
// decrypting encrypted keys. Returns a fresh copy each call.
func DefaultPasswords() []string {
	return []string{"", "password", "changeit", "keypassword"}
}

// DeduplicatePasswords merges additional passwords with the defaults and removes
// duplicates while preserving order. Defaults come first, followed by any extra
// passwords not already in the list.
func DeduplicatePasswords(extra []string) []string {
	all := append(DefaultPasswords(), extra...)
	seen := make(map[string]bool, len(all))
	result := make([]string, 0, len(all))
	for _, p := range all {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}

// passwordIndependent reports whether a decryption error is a property of the
// encrypted key itself, so trying further passwords cannot help.
// ErrInvalidPassword describes one candidate and is not included.
func passwordIndependent(err error) bool {
	return errors.Is(err, ErrMalformedParameters) ||
		errors.Is(err, ErrUnsupportedAlgorithm) ||
		errors.Is(err, ErrUnacceptableIterationCount) ||
		errors.Is(err, ErrKeyLengthMismatch)
}

// DecryptPKCS8PrivateKeyWithPasswords tries each password in order against a
// DER EncryptedPrivateKeyInfo. It stops early when the failure does not
// depend on the password, such as an unsupported scheme.
func DecryptPKCS8PrivateKeyWithPasswords(der []byte, passwords []string) (crypto.PrivateKey, error) {
	var lastErr error
	for _, password := range passwords {
		key, err := DecryptPKCS8PrivateKey(der, []byte(password))
		if err == nil {
			return key, nil
		}
		if passwordIndependent(err) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, errors.New("no passwords to try for encrypted private key")
	}
	return nil, fmt.Errorf("decrypting private key with any provided password: %w", lastErr)
}

// ParsePEMPrivateKeyWithPasswords tries to parse a PEM-encoded private key.
// It first attempts unencrypted parsing via ParsePEMPrivateKey. Encrypted
// PKCS#8, OpenSSH, and legacy RFC 1423 blocks are then tried with each
// password in order.
func ParsePEMPrivateKeyWithPasswords(pemData []byte, passwords []string) (crypto.PrivateKey, error) {
	if key, err := ParsePEMPrivateKey(pemData); err == nil {
		return key, nil
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found in private key data")
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		return DecryptPKCS8PrivateKeyWithPasswords(block.Bytes, passwords)
	case "OPENSSH PRIVATE KEY":
		for _, password := range passwords {
			if password == "" {
				continue // already tried unencrypted above
			}
			key, err := ssh.ParseRawPrivateKeyWithPassphrase(pemData, []byte(password))
			if err == nil {
				return normalizeKey(key), nil
			}
		}
		return nil, errors.New("parsing OpenSSH private key with any provided password")
	}

	//nolint:staticcheck // x509.IsEncryptedPEMBlock is deprecated but needed for legacy encrypted PEM support
	if !x509.IsEncryptedPEMBlock(block) {
		_, err := ParsePEMPrivateKey(pemData)
		return nil, err
	}

	for _, password := range passwords {
		//nolint:staticcheck // x509.DecryptPEMBlock is deprecated but needed for legacy encrypted PEM support
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			continue
		}

		clearPEM := pem.EncodeToMemory(&pem.Block{
			Type:  block.Type,
			Bytes: decrypted,
		})
		if key, err := ParsePEMPrivateKey(clearPEM); err == nil {
			return key, nil
		}
	}

	return nil, errors.New("decrypting private key with any provided password")
}

// ParsePrivateKeyAny parses a private key from PEM or DER bytes. Encrypted
// PKCS#8 in either encoding is decrypted with the given passwords.
func ParsePrivateKeyAny(data []byte, passwords []string) (crypto.PrivateKey, error) {
	if IsPEM(data) {
		return ParsePEMPrivateKeyWithPasswords(data, passwords)
	}
	if key, err := ParsePrivateKeyDER(data); err == nil {
		return key, nil
	}
	if _, _, err := ParseEncryptedPKCS8(data); err != nil {
		return nil, errors.New("data is neither a PEM nor a DER private key")
	}
	return DecryptPKCS8PrivateKeyWithPasswords(data, passwords)
}

// MarshalPrivateKeyToPEM marshals a private key to PKCS#8 PEM format.
// Supports ECDSA, RSA, and Ed25519 keys. Normalizes Ed25519 pointer
// form to value form before marshaling.
func MarshalPrivateKeyToPEM(key crypto.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(normalizeKey(key))
	if err != nil {
		return "", fmt.Errorf("marshaling private key to PKCS#8: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	})
	return string(pemBytes), nil
}

// KeyAlgorithmName returns a human-readable name for a private key's algorithm.
func KeyAlgorithmName(key crypto.PrivateKey) string {
	switch key.(type) {
	case *ecdsa.PrivateKey:
		return "ECDSA"
	case *rsa.PrivateKey:
		return "RSA"
	case ed25519.PrivateKey, *ed25519.PrivateKey:
		return "Ed25519"
	default:
		return "unknown"
	}
}

// IsPEM returns true if the data appears to contain PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}
