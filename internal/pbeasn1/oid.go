// Package pbeasn1 decodes and encodes the ASN.1 parameter structures of
// password-based encryption schemes: PBES2-params and PBKDF2-params from
// RFC 8018, and the PKCS#12 pkcs-12PbeParams from RFC 7292.
//
// Object identifiers are kept as the raw content octets of their DER
// encoding so that comparison is an exact byte match.
package pbeasn1

import (
	"crypto"
	"encoding/asn1"
	"encoding/hex"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// PKCS #5 v2.0 scheme OIDs, RFC 8018 appendix A.
var (
	// OIDPBES2 identifies the PBES2 encryption scheme.
	OIDPBES2 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x05, 0x0d}

	// OIDPBKDF2 identifies the PBKDF2 key derivation function.
	OIDPBKDF2 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x05, 0x0c}
)

// PKCS #12 password-based encryption OIDs, RFC 7292 appendix C.
var (
	OIDPBEWithSHAAnd128BitRC4        = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x01}
	OIDPBEWithSHAAnd40BitRC4         = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x02}
	OIDPBEWithSHAAnd3KeyTripleDESCBC = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x03}
	OIDPBEWithSHAAnd2KeyTripleDESCBC = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x04}
	OIDPBEWithSHAAnd128BitRC2CBC     = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x05}
	OIDPBEWithSHAAnd40BitRC2CBC      = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x0c, 0x01, 0x06}
)

// HMAC pseudo-random function OIDs, RFC 8018 appendix B.1.
var (
	// OIDHMACWithSHA1 is the PBKDF2 PRF used when none is encoded.
	OIDHMACWithSHA1   = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x02, 0x07}
	OIDHMACWithSHA224 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x02, 0x08}
	OIDHMACWithSHA256 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x02, 0x09}
	OIDHMACWithSHA384 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x02, 0x0a}
	OIDHMACWithSHA512 = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x02, 0x0b}
)

// Encryption scheme OIDs usable inside PBES2.
var (
	OIDDESEDE3CBC = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x03, 0x07}
	OIDAES128CBC  = []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x01, 0x02}
	OIDAES192CBC  = []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x01, 0x16}
	OIDAES256CBC  = []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x01, 0x2a}
)

var prfs = []struct {
	oid  []byte
	hash crypto.Hash
}{
	{OIDHMACWithSHA1, crypto.SHA1},
	{OIDHMACWithSHA224, crypto.SHA224},
	{OIDHMACWithSHA256, crypto.SHA256},
	{OIDHMACWithSHA384, crypto.SHA384},
	{OIDHMACWithSHA512, crypto.SHA512},
}

// PRFHash maps an hmacWithSHA* OID to its digest.
func PRFHash(oid []byte) (crypto.Hash, bool) {
	for _, p := range prfs {
		if string(p.oid) == string(oid) {
			return p.hash, true
		}
	}
	return 0, false
}

// PRFOID maps a digest to the OID of HMAC over it.
func PRFOID(h crypto.Hash) ([]byte, bool) {
	for _, p := range prfs {
		if p.hash == h {
			return p.oid, true
		}
	}
	return nil, false
}

// DottedOID renders raw OID content octets in dotted-decimal form. Content
// that does not decode as an OID is shown as hex.
func DottedOID(oid []byte) string {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(oid)
	})
	der, err := b.Bytes()
	if err == nil {
		s := cryptobyte.String(der)
		var id asn1.ObjectIdentifier
		if s.ReadASN1ObjectIdentifier(&id) {
			return id.String()
		}
	}
	return "0x" + hex.EncodeToString(oid)
}
