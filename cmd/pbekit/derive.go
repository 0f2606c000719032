package main

import (
	"crypto"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/pbekit/internal"
	"github.com/sensiblebit/pbekit/internal/kdf"
	"github.com/sensiblebit/pbekit/internal/secret"
)

var (
	derivePassword   string
	deriveSalt       string
	deriveIterations uint32
	deriveLength     int
	deriveHash       string
	deriveID         string
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Run a password-based KDF and print the output as hex",
	Long:  "Derive key material with the PKCS#12 KDF or PBKDF2, for checking interoperability with other implementations.",
}

var derivePKCS12Cmd = &cobra.Command{
	Use:   "pkcs12",
	Short: "PKCS#12 (RFC 7292 appendix B) KDF",
	Example: `  pbekit derive pkcs12 --password swordfish --salt 0102030405060708 --iterations 1 --length 24
  pbekit derive pkcs12 --password swordfish --salt 0102030405060708 --id iv --length 8`,
	Args: cobra.NoArgs,
	RunE: runDerivePKCS12,
}

var derivePBKDF2Cmd = &cobra.Command{
	Use:     "pbkdf2",
	Short:   "PBKDF2 (RFC 8018)",
	Example: `  pbekit derive pbkdf2 --password password --salt 73616c74 --iterations 1 --length 32`,
	Args:    cobra.NoArgs,
	RunE:    runDerivePBKDF2,
}

func init() {
	for _, cmd := range []*cobra.Command{derivePKCS12Cmd, derivePBKDF2Cmd} {
		cmd.Flags().StringVar(&derivePassword, "password", "", "Password (UTF-8)")
		cmd.Flags().StringVar(&deriveSalt, "salt", "", "Salt as hex")
		cmd.Flags().Uint32Var(&deriveIterations, "iterations", 2048, "Iteration count")
		cmd.Flags().IntVar(&deriveLength, "length", 32, "Output length in bytes")
		cmd.Flags().StringVar(&deriveHash, "hash", "", "Digest (default sha1 for pkcs12, sha256 for pbkdf2)")
		registerCompletion(cmd, completionInput{"hash", fixedCompletion(internal.PRFNames()...)})
		deriveCmd.AddCommand(cmd)
	}
	derivePKCS12Cmd.Flags().StringVar(&deriveID, "id", "key", "Diversifier: key, iv, or mac")
	registerCompletion(derivePKCS12Cmd, completionInput{"id", fixedCompletion("key", "iv", "mac")})
}

// parseDiversifier maps a --id value to the PKCS#12 KDF ID byte.
func parseDiversifier(name string) (kdf.ID, error) {
	for _, id := range []kdf.ID{kdf.KeyID, kdf.IVID, kdf.MACID} {
		if strings.EqualFold(name, id.String()) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown diversifier %q (use key, iv, or mac)", name)
}

// deriveInputs decodes the salt and resolves the digest shared by both KDFs.
func deriveInputs(defaultHash crypto.Hash) ([]byte, crypto.Hash, error) {
	salt, err := hex.DecodeString(deriveSalt)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding --salt: %w", err)
	}
	h := defaultHash
	if deriveHash != "" {
		if h, err = internal.ParsePRF(deriveHash); err != nil {
			return nil, 0, err
		}
	}
	return salt, h, nil
}

func runDerivePKCS12(cmd *cobra.Command, args []string) error {
	salt, h, err := deriveInputs(crypto.SHA1)
	if err != nil {
		return err
	}
	id, err := parseDiversifier(deriveID)
	if err != nil {
		return err
	}
	if err := kdf.CheckIterations(uint64(deriveIterations)); err != nil {
		return err
	}
	password, err := kdf.BMPPassword([]byte(derivePassword))
	if err != nil {
		return err
	}
	defer secret.Wipe(password)

	out, err := kdf.PKCS12(password, salt, id, deriveIterations, deriveLength, h)
	if err != nil {
		return err
	}
	defer secret.Wipe(out)
	fmt.Println(hex.EncodeToString(out))
	return nil
}

func runDerivePBKDF2(cmd *cobra.Command, args []string) error {
	salt, h, err := deriveInputs(crypto.SHA256)
	if err != nil {
		return err
	}
	out, err := kdf.PBKDF2([]byte(derivePassword), salt, uint64(deriveIterations), deriveLength, h)
	if err != nil {
		return err
	}
	defer secret.Wipe(out)
	fmt.Println(hex.EncodeToString(out))
	return nil
}
