package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/pbekit/internal"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Extract a key from PKCS#12 or JKS as encrypted PKCS#8",
	Long: `Open a PKCS#12 (.p12/.pfx) bundle or Java KeyStore with the password list and
re-wrap its private key as an ENCRYPTED PRIVATE KEY. Use --alias to pick one
key from a keystore that holds several.`,
	Example: `  pbekit convert server.p12 -p changeit --password s3cret -o server.key
  pbekit convert keystore.jks -p storepass,keypass --alias tomcat --password s3cret`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertFlags.register(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	passwords, err := inputPasswords()
	if err != nil {
		return err
	}
	entries, err := internal.LoadKeyFile(args[0], passwords)
	if err != nil {
		return err
	}
	if len(entries) > 0 && entries[0].Format != internal.FormatPKCS12 && entries[0].Format != internal.FormatJKS {
		return fmt.Errorf("%s is %s, not PKCS#12 or JKS; use encrypt instead", args[0], entries[0].Format)
	}
	return convertFlags.encryptAndWrite(entries)
}
