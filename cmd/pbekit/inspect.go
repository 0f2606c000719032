package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/pbekit/internal"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display the encryption parameters of an encrypted key",
	Long:  "Show the scheme, KDF, PRF, iteration count, salt, cipher, and IV of every ENCRYPTED PRIVATE KEY in a file without decrypting it.",
	Example: `  pbekit inspect key.enc.pem
  pbekit inspect key.der --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")

	registerCompletion(inspectCmd, completionInput{"format", fixedCompletion("text", "json")})
}

func runInspect(cmd *cobra.Command, args []string) error {
	results, err := internal.InspectFile(args[0])
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, inspectFormat)
	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}
