package pbekit

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rc4"
	"fmt"
	"strings"

	"github.com/dgryski/go-rc2"

	"github.com/sensiblebit/pbekit/internal/pbeasn1"
)

// CipherKind names a symmetric cipher and mode usable by a PBE scheme.
type CipherKind int

const (
	AES128CBC CipherKind = iota + 1
	AES192CBC
	AES256CBC
	DESEDE3CBC
	// DESEDECBC is two-key triple DES. It only appears in legacy PKCS#12
	// schemes and cannot be selected for encryption.
	DESEDECBC
	RC2CBC40
	RC2CBC128
	RC4Key40
	RC4Key128
)

type cipherInfo struct {
	name    string
	keySize int
	ivSize  int
	// pbes2OID is the encryption scheme OID for PBES2, nil for ciphers that
	// are only reachable through legacy PKCS#12 schemes.
	pbes2OID  []byte
	newBlock  func(key []byte) (cipher.Block, error)
	newStream func(key []byte) (cipher.Stream, error)
}

var cipherTable = map[CipherKind]cipherInfo{
	AES128CBC:  {name: "aes-128-cbc", keySize: 16, ivSize: aes.BlockSize, pbes2OID: pbeasn1.OIDAES128CBC, newBlock: aes.NewCipher},
	AES192CBC:  {name: "aes-192-cbc", keySize: 24, ivSize: aes.BlockSize, pbes2OID: pbeasn1.OIDAES192CBC, newBlock: aes.NewCipher},
	AES256CBC:  {name: "aes-256-cbc", keySize: 32, ivSize: aes.BlockSize, pbes2OID: pbeasn1.OIDAES256CBC, newBlock: aes.NewCipher},
	DESEDE3CBC: {name: "des-ede3-cbc", keySize: 24, ivSize: des.BlockSize, pbes2OID: pbeasn1.OIDDESEDE3CBC, newBlock: des.NewTripleDESCipher},
	DESEDECBC:  {name: "des-ede-cbc", keySize: 16, ivSize: des.BlockSize, newBlock: newTwoKeyTripleDES},
	RC2CBC40:   {name: "rc2-40-cbc", keySize: 5, ivSize: 8, newBlock: newRC2},
	RC2CBC128:  {name: "rc2-cbc", keySize: 16, ivSize: 8, newBlock: newRC2},
	RC4Key40:   {name: "rc4-40", keySize: 5, newStream: newRC4},
	RC4Key128:  {name: "rc4", keySize: 16, newStream: newRC4},
}

// newTwoKeyTripleDES expands a 16-byte K1||K2 key to K1||K2||K1.
func newTwoKeyTripleDES(key []byte) (cipher.Block, error) {
	full := make([]byte, 0, 24)
	full = append(full, key...)
	full = append(full, key[:8]...)
	defer clear(full)
	return des.NewTripleDESCipher(full)
}

// newRC2 uses the key length in bits as the effective key length, as PKCS#12
// does for both RC2 variants.
func newRC2(key []byte) (cipher.Block, error) {
	return rc2.New(key, len(key)*8)
}

func newRC4(key []byte) (cipher.Stream, error) {
	return rc4.NewCipher(key)
}

func (k CipherKind) info() (cipherInfo, bool) {
	info, ok := cipherTable[k]
	return info, ok
}

// KeySize returns the key length in bytes, or 0 for an unknown kind.
func (k CipherKind) KeySize() int {
	info, _ := k.info()
	return info.keySize
}

// IVSize returns the IV length in bytes. Stream ciphers have none.
func (k CipherKind) IVSize() int {
	info, _ := k.info()
	return info.ivSize
}

// BlockSize returns the padding block size: the IV size for CBC modes and 1
// for stream ciphers.
func (k CipherKind) BlockSize() int {
	info, ok := k.info()
	if !ok {
		return 0
	}
	if info.newStream != nil {
		return 1
	}
	return info.ivSize
}

// PBES2 reports whether the cipher can be named as a PBES2 encryption
// scheme, and so used for encryption.
func (k CipherKind) PBES2() bool {
	info, _ := k.info()
	return info.pbes2OID != nil
}

// String returns the OpenSSL name of the cipher.
func (k CipherKind) String() string {
	if info, ok := k.info(); ok {
		return info.name
	}
	return fmt.Sprintf("CipherKind(%d)", int(k))
}

// ParseCipherKind looks up a cipher by its OpenSSL name, case-insensitively.
func ParseCipherKind(name string) (CipherKind, error) {
	for kind, info := range cipherTable {
		if strings.EqualFold(info.name, name) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: cipher %q", ErrUnsupportedAlgorithm, name)
}

// PBES2Ciphers returns the ciphers that EncryptInit accepts, in a fixed
// order.
func PBES2Ciphers() []CipherKind {
	return []CipherKind{AES128CBC, AES192CBC, AES256CBC, DESEDE3CBC}
}

// cipherForPBES2OID resolves a PBES2 encryption scheme OID.
func cipherForPBES2OID(oid []byte) (CipherKind, bool) {
	for _, kind := range PBES2Ciphers() {
		if string(cipherTable[kind].pbes2OID) == string(oid) {
			return kind, true
		}
	}
	return 0, false
}

// CipherContext is a cipher configured by Decrypt's scheme initializers or
// by EncryptInit. It processes exactly one buffer: Final pads or unpads for
// CBC modes and leaves the context spent. Callers defer Wipe.
type CipherContext struct {
	kind    CipherKind
	encrypt bool
	mode    cipher.BlockMode
	stream  cipher.Stream
}

// init configures the context. The cipher implementations copy key and iv,
// so the caller may wipe both as soon as init returns.
func (c *CipherContext) init(kind CipherKind, key, iv []byte, encrypt bool) error {
	c.Wipe()

	info, ok := kind.info()
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, kind)
	}
	if len(key) != info.keySize {
		return fmt.Errorf("%w: %v needs a %d-byte key, got %d", ErrKeyLengthMismatch, kind, info.keySize, len(key))
	}
	if len(iv) != info.ivSize {
		return fmt.Errorf("%w: %v needs a %d-byte IV, got %d", ErrKeyLengthMismatch, kind, info.ivSize, len(iv))
	}

	if info.newStream != nil {
		s, err := info.newStream(key)
		if err != nil {
			return fmt.Errorf("%w: creating %v: %w", ErrCipherFailure, kind, err)
		}
		c.stream = s
	} else {
		b, err := info.newBlock(key)
		if err != nil {
			return fmt.Errorf("%w: creating %v: %w", ErrCipherFailure, kind, err)
		}
		if encrypt {
			c.mode = cipher.NewCBCEncrypter(b, iv)
		} else {
			c.mode = cipher.NewCBCDecrypter(b, iv)
		}
	}
	c.kind, c.encrypt = kind, encrypt
	return nil
}

// Kind returns the configured cipher, or 0 once the context is wiped.
func (c *CipherContext) Kind() CipherKind { return c.kind }

// Encrypting reports whether the context was configured for encryption.
func (c *CipherContext) Encrypting() bool { return c.encrypt }

// Wipe drops the cipher state. The context cannot be used afterwards.
func (c *CipherContext) Wipe() {
	if rc, ok := c.stream.(*rc4.Cipher); ok {
		rc.Reset() //nolint:staticcheck // Reset is deprecated but is the only way to clear RC4 state
	}
	*c = CipherContext{}
}

// Final runs the whole input through the cipher and returns a new buffer.
// CBC encryption appends PKCS#7 padding and CBC decryption verifies and
// removes it. On failure no output is returned.
func (c *CipherContext) Final(in []byte) ([]byte, error) {
	defer c.Wipe()

	switch {
	case c.stream != nil:
		out := make([]byte, len(in))
		c.stream.XORKeyStream(out, in)
		return out, nil
	case c.mode == nil:
		return nil, fmt.Errorf("%w: cipher context is not initialized", ErrCipherFailure)
	case c.encrypt:
		return encryptCBC(c.mode, in), nil
	default:
		return decryptCBC(c.mode, in)
	}
}

func encryptCBC(mode cipher.BlockMode, in []byte) []byte {
	bs := mode.BlockSize()
	pad := bs - len(in)%bs
	out := make([]byte, len(in)+pad)
	copy(out, in)
	for i := len(in); i < len(out); i++ {
		out[i] = byte(pad)
	}
	mode.CryptBlocks(out, out)
	return out
}

func decryptCBC(mode cipher.BlockMode, in []byte) ([]byte, error) {
	bs := mode.BlockSize()
	if len(in) == 0 || len(in)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d", ErrCipherFailure, len(in), bs)
	}
	out := make([]byte, len(in))
	mode.CryptBlocks(out, in)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > bs {
		clear(out)
		return nil, fmt.Errorf("%w: bad padding", ErrCipherFailure)
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			clear(out)
			return nil, fmt.Errorf("%w: bad padding", ErrCipherFailure)
		}
	}
	return out[:len(out)-pad], nil
}
