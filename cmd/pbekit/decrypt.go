package main

import (
	"crypto/x509"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/pbekit"
	"github.com/sensiblebit/pbekit/internal"
)

var (
	decryptOutPath string
	decryptDER     bool
	decryptAlias   string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Decrypt a private key to unencrypted PKCS#8",
	Long: `Decrypt an encrypted private key and write it as unencrypted PKCS#8.

Accepts ENCRYPTED PRIVATE KEY (PEM or DER) with any supported PBES2 or
PKCS#12 legacy scheme, plus PKCS#12 bundles and Java KeyStores. The password
list (defaults, --passwords, --password-file) is tried in order.`,
	Example: `  pbekit decrypt key.enc.pem -p s3cret
  pbekit decrypt key.der --password-file passwords.txt -o key.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runDecrypt,
}

func init() {
	decryptCmd.Flags().StringVarP(&decryptOutPath, "out", "o", "", "Output file (default: stdout)")
	decryptCmd.Flags().BoolVar(&decryptDER, "der", false, "Write DER instead of PEM")
	decryptCmd.Flags().StringVar(&decryptAlias, "alias", "", "Keystore alias to use when the input holds several keys")

	registerCompletion(decryptCmd, completionInput{"out", fileCompletion})
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	passwords, err := inputPasswords()
	if err != nil {
		return err
	}
	entries, err := internal.LoadKeyFile(args[0], passwords)
	if err != nil {
		return err
	}
	entry, err := internal.SelectKey(entries, decryptAlias)
	if err != nil {
		return err
	}

	if decryptDER {
		der, err := x509.MarshalPKCS8PrivateKey(entry.Key)
		if err != nil {
			return fmt.Errorf("marshaling private key to PKCS#8: %w", err)
		}
		return writeOutput(decryptOutPath, der, true)
	}
	pemData, err := pbekit.MarshalPrivateKeyToPEM(entry.Key)
	if err != nil {
		return err
	}
	return writeOutput(decryptOutPath, []byte(pemData), false)
}
