package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/pbekit/internal"
)

var (
	logLevel     string
	configPath   string
	passwordList []string
	passwordFile string

	cfg = &internal.Config{}
)

var rootCmd = &cobra.Command{
	Use:   "pbekit",
	Short: "Password-based encryption tool for PKCS#8 private keys",
	Long: `Decrypt, encrypt, inspect, and convert password-protected private keys.

Reads PKCS#5 PBES2 and PKCS#12 legacy encrypted PKCS#8 keys as written by
OpenSSL, Java, and Windows, and writes PBES2 with PBKDF2.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetupLogger(logLevel)
		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file with encryption defaults and profiles")
	rootCmd.PersistentFlags().StringSliceVarP(&passwordList, "passwords", "p", nil, "Comma-separated passwords to try on encrypted input")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passwords to try, one per line")

	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"config", fileCompletion})
	registerCompletion(rootCmd, completionInput{"password-file", fileCompletion})

	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(deriveCmd)
}

// effectivePasswordFile returns --password-file, or the config's
// passwordFile when the flag is not given.
func effectivePasswordFile() string {
	if passwordFile != "" {
		return passwordFile
	}
	return cfg.PasswordFile
}

// inputPasswords returns the passwords to try on encrypted input: defaults,
// then the config file's list, then --passwords, then the password file.
func inputPasswords() ([]string, error) {
	list := append(append([]string(nil), cfg.Passwords...), passwordList...)
	passwords, err := internal.ProcessPasswords(list, effectivePasswordFile())
	if err != nil {
		return nil, fmt.Errorf("loading passwords: %w", err)
	}
	return passwords, nil
}
