package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sensiblebit/pbekit"
)

// PasswordEnv names the environment variable that supplies the encryption
// password when no flag does.
const PasswordEnv = "PBEKIT_PASSWORD"

// readPasswords returns the non-blank lines of r with surrounding whitespace
// trimmed.
func readPasswords(r io.Reader) ([]string, error) {
	var passwords []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// LoadPasswordsFromFile loads passwords from a file, one password per line.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readPasswords(file)
}

// ProcessPasswords builds the ordered list of passwords to try when
// decrypting: the defaults, then passwordList, then the lines of
// passwordFile, with duplicates removed.
func ProcessPasswords(passwordList []string, passwordFile string) ([]string, error) {
	extra := append([]string(nil), passwordList...)
	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		extra = append(extra, filePasswords...)
	}
	return pbekit.DeduplicatePasswords(extra), nil
}

// EncryptionPassword picks the single password used to encrypt. The flag
// value wins, then the PBEKIT_PASSWORD environment variable, then the first
// line of passwordFile.
func EncryptionPassword(flag, passwordFile string) ([]byte, error) {
	if flag != "" {
		return []byte(flag), nil
	}
	if env := os.Getenv(PasswordEnv); env != "" {
		return []byte(env), nil
	}
	if passwordFile != "" {
		passwords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading password from file: %w", err)
		}
		if len(passwords) > 0 {
			return []byte(passwords[0]), nil
		}
	}
	return nil, errors.New("no encryption password given (use --password, --password-file, or " + PasswordEnv + ")")
}
