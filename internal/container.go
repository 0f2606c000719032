package internal

import (
	"bytes"
	"crypto"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/pbekit"
)

// Container formats a private key can be loaded from.
const (
	FormatPEM          = "PEM"
	FormatDER          = "DER"
	FormatEncryptedDER = "encrypted PKCS#8 DER"
	FormatPKCS12       = "PKCS#12"
	FormatJKS          = "JKS"
)

var jksMagic = []byte{0xFE, 0xED, 0xFE, 0xED}

// KeyEntry is one private key found in a container file.
type KeyEntry struct {
	Key    crypto.PrivateKey
	Format string
	// Alias is the keystore alias for JKS entries and empty otherwise.
	Alias string
}

// LoadKeyFile reads a file and extracts its private keys. See ParseKeyData.
func LoadKeyFile(path string, passwords []string) ([]KeyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	entries, err := ParseKeyData(data, passwords)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// ParseKeyData extracts private keys from PEM (any private key block,
// encrypted or not), DER PKCS#8/PKCS#1/SEC 1, DER EncryptedPrivateKeyInfo,
// JKS, or PKCS#12 data. Encrypted inputs are opened with passwords in order.
func ParseKeyData(data []byte, passwords []string) ([]KeyEntry, error) {
	if pbekit.IsPEM(data) {
		entries, err := parsePEMKeys(data, passwords)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no private key blocks found in PEM data")
		}
		return entries, nil
	}

	format := FormatDER
	if _, _, err := pbekit.ParseEncryptedPKCS8(data); err == nil {
		format = FormatEncryptedDER
	}
	key, err := pbekit.ParsePrivateKeyAny(data, passwords)
	switch {
	case err == nil:
		return []KeyEntry{{Key: key, Format: format}}, nil
	case format == FormatEncryptedDER:
		return nil, err
	}

	if bytes.HasPrefix(data, jksMagic) {
		keys, err := pbekit.DecodeJKSKeys(data, passwords)
		if err != nil {
			return nil, err
		}
		entries := make([]KeyEntry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, KeyEntry{Key: k.Key, Format: FormatJKS, Alias: k.Alias})
		}
		return entries, nil
	}

	key, _, err = pbekit.DecodePKCS12KeyWithPasswords(data, passwords)
	if err != nil {
		return nil, fmt.Errorf("could not parse as PEM, DER, encrypted PKCS#8, JKS, or PKCS#12: %w", err)
	}
	return []KeyEntry{{Key: key, Format: FormatPKCS12}}, nil
}

// parsePEMKeys parses every PEM block whose type names a private key. A
// block that cannot be opened is an error rather than being skipped.
func parsePEMKeys(data []byte, passwords []string) ([]KeyEntry, error) {
	var entries []KeyEntry
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if !strings.Contains(block.Type, "PRIVATE KEY") {
			continue
		}
		key, err := pbekit.ParsePEMPrivateKeyWithPasswords(pem.EncodeToMemory(block), passwords)
		if err != nil {
			return nil, fmt.Errorf("parsing %s block: %w", block.Type, err)
		}
		entries = append(entries, KeyEntry{Key: key, Format: FormatPEM})
	}
	return entries, nil
}

// SelectKey picks the entry named alias, or the only entry when alias is
// empty.
func SelectKey(entries []KeyEntry, alias string) (KeyEntry, error) {
	if alias != "" {
		for _, e := range entries {
			if e.Alias == alias {
				return e, nil
			}
		}
		return KeyEntry{}, fmt.Errorf("no private key with alias %q", alias)
	}
	switch len(entries) {
	case 0:
		return KeyEntry{}, errors.New("no private keys found")
	case 1:
		return entries[0], nil
	default:
		var aliases []string
		for _, e := range entries {
			if e.Alias != "" {
				aliases = append(aliases, e.Alias)
			}
		}
		if len(aliases) == 0 {
			return KeyEntry{}, fmt.Errorf("found %d private keys; expected one", len(entries))
		}
		return KeyEntry{}, fmt.Errorf("found %d private keys; choose one with --alias (%s)", len(entries), strings.Join(aliases, ", "))
	}
}
