package pbekit

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// JKSKey is a private key entry recovered from a Java KeyStore.
type JKSKey struct {
	Alias string
	Key   crypto.PrivateKey
	// PKCS8 is the unencrypted PrivateKeyInfo DER exactly as stored.
	PKCS8 []byte
}

// DecodeJKSKeys loads a Java KeyStore and returns its private key entries.
// Each password is tried for the store; the password that opens the store is
// tried first for each entry, then the rest. Entries no password opens are
// skipped. An error is returned if the store cannot be loaded or holds no
// usable keys.
func DecodeJKSKeys(data []byte, passwords []string) ([]JKSKey, error) {
	var ks keystore.KeyStore
	var storePassword string
	var loadErr error
	loaded := false
	for _, password := range passwords {
		ks = keystore.New()
		if loadErr = ks.Load(bytes.NewReader(data), []byte(password)); loadErr == nil {
			storePassword, loaded = password, true
			break
		}
	}
	if !loaded {
		if loadErr == nil {
			return nil, errors.New("no passwords to try for JKS")
		}
		return nil, fmt.Errorf("loading JKS: %w", loadErr)
	}

	entryPasswords := append([]string{storePassword}, passwords...)

	var keys []JKSKey
	for _, alias := range ks.Aliases() {
		if !ks.IsPrivateKeyEntry(alias) {
			continue
		}
		for _, password := range entryPasswords {
			entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
			if err != nil {
				continue
			}
			key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
			if err != nil {
				break
			}
			keys = append(keys, JKSKey{Alias: alias, Key: normalizeKey(key), PKCS8: entry.PrivateKey})
			break
		}
	}

	if len(keys) == 0 {
		return nil, errors.New("JKS contains no usable private keys")
	}
	return keys, nil
}
