package internal

import (
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/pbekit"
)

// InspectResult describes one encrypted private key without decrypting it.
type InspectResult struct {
	Block         int    `json:"block"`
	Scheme        string `json:"scheme"`
	OID           string `json:"oid"`
	KDF           string `json:"kdf"`
	Digest        string `json:"digest"`
	Iterations    uint64 `json:"iterations"`
	Salt          string `json:"salt"`
	Cipher        string `json:"cipher"`
	KeyBits       int    `json:"key_bits"`
	IV            string `json:"iv,omitempty"`
	KeyLength     uint32 `json:"key_length,omitempty"`
	EncryptedSize int    `json:"encrypted_size"`
	Error         string `json:"error,omitempty"`

	salt, iv []byte
	ivSize   int
}

// InspectFile reads a file and describes every encrypted PKCS#8 key in it.
func InspectFile(path string) ([]InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	results, err := InspectData(data)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}
	return results, nil
}

// InspectData describes the EncryptedPrivateKeyInfo structures in data,
// which is either PEM with "ENCRYPTED PRIVATE KEY" blocks or a single DER
// structure. A block whose parameters do not validate is reported with
// Error set rather than failing the whole file.
func InspectData(data []byte) ([]InspectResult, error) {
	if !pbekit.IsPEM(data) {
		r, err := inspectDER(data)
		if err != nil {
			return nil, err
		}
		return []InspectResult{r}, nil
	}

	var results []InspectResult
	rest := data
	for n := 1; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "ENCRYPTED PRIVATE KEY" {
			continue
		}
		r, err := inspectDER(block.Bytes)
		if err != nil {
			r = InspectResult{Error: err.Error()}
		}
		r.Block = n
		n++
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no ENCRYPTED PRIVATE KEY blocks found")
	}
	return results, nil
}

func inspectDER(der []byte) (InspectResult, error) {
	alg, encrypted, err := pbekit.ParseEncryptedPKCS8(der)
	if err != nil {
		return InspectResult{}, err
	}
	s, err := pbekit.DescribeAlgorithm(alg)
	if err != nil {
		return InspectResult{}, err
	}
	return InspectResult{
		Block:         1,
		Scheme:        s.Name,
		OID:           s.OID,
		KDF:           string(s.KDF),
		Digest:        s.Digest.String(),
		Iterations:    s.Iterations,
		Salt:          hex.EncodeToString(s.Salt),
		Cipher:        s.Cipher.String(),
		KeyBits:       s.Cipher.KeySize() * 8,
		IV:            hex.EncodeToString(s.IV),
		KeyLength:     s.KeyLength,
		EncryptedSize: len(encrypted),
		salt:          s.Salt,
		iv:            s.IV,
		ivSize:        s.Cipher.IVSize(),
	}, nil
}

// FormatInspectResults formats inspection results as text or JSON.
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(results), nil
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(results []InspectResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Encrypted Private Key #%d:\n", r.Block)
		if r.Error != "" {
			fmt.Fprintf(&sb, "  Error:       %s\n", r.Error)
			continue
		}
		fmt.Fprintf(&sb, "  Scheme:      %s (%s)\n", r.Scheme, r.OID)
		switch r.KDF {
		case string(pbekit.KDFPBKDF2):
			fmt.Fprintf(&sb, "  KDF:         %s, PRF HMAC-%s\n", r.KDF, r.Digest)
		default:
			fmt.Fprintf(&sb, "  KDF:         %s, %s\n", r.KDF, r.Digest)
		}
		fmt.Fprintf(&sb, "  Iterations:  %d\n", r.Iterations)
		fmt.Fprintf(&sb, "  Salt:        %s\n", WrapHex(r.salt, 16, "               "))
		fmt.Fprintf(&sb, "  Cipher:      %s (%d-bit key)\n", r.Cipher, r.KeyBits)
		switch {
		case r.ivSize == 0:
			sb.WriteString("  IV:          none\n")
		case r.KDF == string(pbekit.KDFPKCS12):
			sb.WriteString("  IV:          derived from password\n")
		default:
			fmt.Fprintf(&sb, "  IV:          %s\n", WrapHex(r.iv, 16, "               "))
		}
		if r.KeyLength != 0 {
			fmt.Fprintf(&sb, "  Key Length:  %d\n", r.KeyLength)
		}
		fmt.Fprintf(&sb, "  Ciphertext:  %d bytes\n", r.EncryptedSize)
	}
	return sb.String()
}
