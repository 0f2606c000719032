package pbekit

import (
	"bytes"
	"crypto"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/cryptobyte"

	"github.com/sensiblebit/pbekit/internal/kdf"
	"github.com/sensiblebit/pbekit/internal/pbeasn1"
	"github.com/sensiblebit/pbekit/internal/secret"
)

// pbeSuite binds an encryption algorithm OID to the cipher and digest it
// implies and to the function that configures a decryption context from the
// algorithm's parameters. PBES2 carries its cipher and digest in its
// parameters, so its entry leaves both unset.
type pbeSuite struct {
	name        string
	oid         []byte
	cipher      CipherKind
	digest      crypto.Hash
	decryptInit func(s *pbeSuite, ctx *CipherContext, password []byte, params cryptobyte.String) error
}

var pbeSuites = [...]pbeSuite{
	{
		name:        "pbeWithSHAAnd128BitRC4",
		oid:         pbeasn1.OIDPBEWithSHAAnd128BitRC4,
		cipher:      RC4Key128,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "pbeWithSHAAnd40BitRC4",
		oid:         pbeasn1.OIDPBEWithSHAAnd40BitRC4,
		cipher:      RC4Key40,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "pbeWithSHAAnd3-KeyTripleDES-CBC",
		oid:         pbeasn1.OIDPBEWithSHAAnd3KeyTripleDESCBC,
		cipher:      DESEDE3CBC,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "pbeWithSHAAnd2-KeyTripleDES-CBC",
		oid:         pbeasn1.OIDPBEWithSHAAnd2KeyTripleDESCBC,
		cipher:      DESEDECBC,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "pbeWithSHAAnd128BitRC2-CBC",
		oid:         pbeasn1.OIDPBEWithSHAAnd128BitRC2CBC,
		cipher:      RC2CBC128,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "pbeWithSHAAnd40BitRC2-CBC",
		oid:         pbeasn1.OIDPBEWithSHAAnd40BitRC2CBC,
		cipher:      RC2CBC40,
		digest:      crypto.SHA1,
		decryptInit: pkcs12DecryptInit,
	},
	{
		name:        "PBES2",
		oid:         pbeasn1.OIDPBES2,
		decryptInit: pbes2DecryptInit,
	},
}

// lookupSuite returns the suite whose OID matches oid exactly, or nil.
func lookupSuite(oid []byte) *pbeSuite {
	for i := range pbeSuites {
		if bytes.Equal(pbeSuites[i].oid, oid) {
			return &pbeSuites[i]
		}
	}
	return nil
}

// pkcs12DecryptInit configures ctx for a legacy PKCS#12 scheme: the key and,
// for block ciphers, the IV both come from the PKCS#12 KDF over the BMPString
// form of the password.
func pkcs12DecryptInit(s *pbeSuite, ctx *CipherContext, password []byte, params cryptobyte.String) error {
	p, err := pbeasn1.ParsePBEParams(params)
	if err != nil {
		return fmt.Errorf("decoding PBE parameters: %w", err)
	}
	slog.Debug("deriving legacy PBE key", "scheme", s.name, "iterations", p.Iterations)

	bmp, err := kdf.BMPPassword(password)
	if err != nil {
		return err
	}
	defer secret.Wipe(bmp)

	key, err := kdf.PKCS12(bmp, p.Salt, kdf.KeyID, p.Iterations, s.cipher.KeySize(), s.digest)
	if err != nil {
		return fmt.Errorf("deriving key: %w", err)
	}
	defer secret.Wipe(key)

	var iv []byte
	if n := s.cipher.IVSize(); n > 0 {
		if iv, err = kdf.PKCS12(bmp, p.Salt, kdf.IVID, p.Iterations, n, s.digest); err != nil {
			return fmt.Errorf("deriving IV: %w", err)
		}
		defer secret.Wipe(iv)
	}

	return ctx.init(s.cipher, key, iv, false)
}

// decodePBES2 decodes PBES2-params and checks them against the cipher they
// name: the KDF must be PBKDF2, a keyLength if present must equal the
// cipher's key size, and the IV must have the cipher's IV size.
func decodePBES2(params cryptobyte.String) (CipherKind, pbeasn1.PBKDF2Params, []byte, error) {
	var kp pbeasn1.PBKDF2Params
	p, err := pbeasn1.ParsePBES2Params(params)
	if err != nil {
		return 0, kp, nil, fmt.Errorf("decoding PBES2 parameters: %w", err)
	}
	if !bytes.Equal(p.KDF.OID, pbeasn1.OIDPBKDF2) {
		return 0, kp, nil, fmt.Errorf("%w: PBES2 key derivation function %s", ErrUnsupportedAlgorithm, pbeasn1.DottedOID(p.KDF.OID))
	}
	kind, ok := cipherForPBES2OID(p.EncryptionScheme.OID)
	if !ok {
		return 0, kp, nil, fmt.Errorf("%w: PBES2 encryption scheme %s", ErrUnsupportedAlgorithm, pbeasn1.DottedOID(p.EncryptionScheme.OID))
	}

	kp, err = pbeasn1.ParsePBKDF2Params(p.KDF.Params)
	if err != nil {
		return 0, kp, nil, fmt.Errorf("decoding PBKDF2 parameters: %w", err)
	}
	if kp.HasKeyLength && int(kp.KeyLength) != kind.KeySize() {
		return 0, kp, nil, fmt.Errorf("%w: PBKDF2 keyLength %d, %v needs %d", ErrKeyLengthMismatch, kp.KeyLength, kind, kind.KeySize())
	}
	iv, err := pbeasn1.ParseIV(p.EncryptionScheme.Params, kind.IVSize())
	if err != nil {
		return 0, kp, nil, fmt.Errorf("decoding %v IV: %w", kind, err)
	}
	return kind, kp, iv, nil
}

// pbes2DecryptInit configures ctx for PBES2 with PBKDF2 as the KDF. The
// cipher comes from the encryption scheme OID and the IV from its
// parameters.
func pbes2DecryptInit(_ *pbeSuite, ctx *CipherContext, password []byte, params cryptobyte.String) error {
	kind, kp, iv, err := decodePBES2(params)
	if err != nil {
		return err
	}
	slog.Debug("deriving PBES2 key", "cipher", kind, "prf", kp.PRF, "iterations", kp.Iterations)

	key, err := kdf.PBKDF2(password, kp.Salt, kp.Iterations, kind.KeySize(), kp.PRF)
	if err != nil {
		return fmt.Errorf("deriving key: %w", err)
	}
	defer secret.Wipe(key)

	return ctx.init(kind, key, iv, false)
}
