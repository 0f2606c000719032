package pbekit

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// validateKeyType checks that the private key is a type PKCS#8 can carry.
func validateKeyType(privateKey crypto.PrivateKey) error {
	switch privateKey.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		return nil
	default:
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}
}

// DecodePKCS12Key decodes a PKCS#12/PFX bundle and returns its private key
// and leaf certificate. Returns an error if decoding fails or the bundle
// holds no usable key.
func DecodePKCS12Key(pfxData []byte, password string) (crypto.PrivateKey, *x509.Certificate, error) {
	privateKey, leaf, _, err := gopkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding PKCS#12: %w", err)
	}
	if privateKey == nil {
		return nil, nil, errors.New("PKCS#12 bundle contains no private key")
	}
	privateKey = normalizeKey(privateKey)
	if err := validateKeyType(privateKey); err != nil {
		return nil, nil, err
	}
	return privateKey, leaf, nil
}

// DecodePKCS12KeyWithPasswords tries each password in order and returns the
// first key that decodes.
func DecodePKCS12KeyWithPasswords(pfxData []byte, passwords []string) (crypto.PrivateKey, *x509.Certificate, error) {
	var lastErr error
	for _, password := range passwords {
		key, leaf, err := DecodePKCS12Key(pfxData, password)
		if err == nil {
			return key, leaf, nil
		}
		if !errors.Is(err, gopkcs12.ErrIncorrectPassword) {
			return nil, nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, nil, errors.New("no passwords to try for PKCS#12 bundle")
	}
	return nil, nil, fmt.Errorf("decoding PKCS#12 with any provided password: %w", lastErr)
}
