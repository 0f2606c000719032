package main

import (
	"encoding/pem"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sensiblebit/pbekit"
	"github.com/sensiblebit/pbekit/internal"
)

// encryptionFlags are shared by every command that writes an encrypted key.
type encryptionFlags struct {
	settings internal.EncryptionConfig
	profile  string
	password string
	outPath  string
	der      bool
	alias    string
}

var (
	encryptFlags encryptionFlags
	convertFlags encryptionFlags
)

func (f *encryptionFlags) register(cmd *cobra.Command) {
	f.addFlags(cmd.Flags())

	ciphers := make([]string, 0, len(pbekit.PBES2Ciphers()))
	for _, kind := range pbekit.PBES2Ciphers() {
		ciphers = append(ciphers, kind.String())
	}
	registerCompletion(cmd, completionInput{"cipher", fixedCompletion(ciphers...)})
	registerCompletion(cmd, completionInput{"prf", fixedCompletion(internal.PRFNames()...)})
	registerCompletion(cmd, completionInput{"out", fileCompletion})
}

func (f *encryptionFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.settings.Cipher, "cipher", "", "PBES2 cipher (default aes-256-cbc)")
	fs.StringVar(&f.settings.PRF, "prf", "", "PBKDF2 PRF digest (default sha256)")
	fs.Uint32Var(&f.settings.Iterations, "iterations", 0, fmt.Sprintf("PBKDF2 iteration count (default %d)", pbekit.DefaultIterations))
	fs.IntVar(&f.settings.SaltLength, "salt-length", 0, fmt.Sprintf("Salt length in bytes (default %d)", pbekit.DefaultSaltLen))
	fs.StringVar(&f.profile, "profile", "", "Encryption profile from the config file")
	fs.StringVar(&f.password, "password", "", "Encryption password (or set "+internal.PasswordEnv+")")
	fs.StringVarP(&f.outPath, "out", "o", "", "Output file (default: stdout)")
	fs.BoolVar(&f.der, "der", false, "Write DER instead of PEM")
	fs.StringVar(&f.alias, "alias", "", "Keystore alias to use when the input holds several keys")
}

// options layers the flags over the selected config profile.
func (f *encryptionFlags) options() (*pbekit.PKCS8Options, error) {
	base, err := cfg.Encryption(f.profile)
	if err != nil {
		return nil, err
	}
	return f.settings.Over(base).Options()
}

// encryptAndWrite selects one key from entries, encrypts it, and writes it.
func (f *encryptionFlags) encryptAndWrite(entries []internal.KeyEntry) error {
	entry, err := internal.SelectKey(entries, f.alias)
	if err != nil {
		return err
	}
	opts, err := f.options()
	if err != nil {
		return err
	}
	password, err := internal.EncryptionPassword(f.password, effectivePasswordFile())
	if err != nil {
		return err
	}

	der, err := pbekit.EncryptPKCS8PrivateKey(entry.Key, password, opts)
	if err != nil {
		return err
	}
	slog.Debug("encrypted private key", "source", entry.Format, "alias", entry.Alias, "algorithm", pbekit.KeyAlgorithmName(entry.Key))

	if f.der {
		return writeOutput(f.outPath, der, true)
	}
	return writeOutput(f.outPath, pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der}), false)
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file>",
	Short: "Encrypt a private key as PBES2 PKCS#8",
	Long: `Read a private key (PKCS#1, SEC 1, PKCS#8, OpenSSH, or an already encrypted
PKCS#8 key) and write it as an ENCRYPTED PRIVATE KEY using PBES2 with PBKDF2.

Settings come from --profile (or the config defaults), overridden by flags.`,
	Example: `  pbekit encrypt key.pem --password s3cret > key.enc.pem
  pbekit encrypt key.pem --cipher aes-128-cbc --prf sha1 --iterations 100000
  pbekit encrypt legacy.pem -p oldpass --password newpass --der -o key.der`,
	Args: cobra.ExactArgs(1),
	RunE: runEncrypt,
}

func init() {
	encryptFlags.register(encryptCmd)
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	passwords, err := inputPasswords()
	if err != nil {
		return err
	}
	entries, err := internal.LoadKeyFile(args[0], passwords)
	if err != nil {
		return err
	}
	return encryptFlags.encryptAndWrite(entries)
}
