package internal

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/pbekit"
)

// EncryptionConfig holds the PBES2 choices for writing an encrypted key.
// Zero fields mean "not set" and are filled from the next layer down.
type EncryptionConfig struct {
	Cipher     string `yaml:"cipher,omitempty"`
	PRF        string `yaml:"prf,omitempty"`
	Iterations uint32 `yaml:"iterations,omitempty"`
	SaltLength int    `yaml:"saltLength,omitempty"`
}

// ProfileConfig is a named EncryptionConfig from the config file.
type ProfileConfig struct {
	Name             string `yaml:"name"`
	EncryptionConfig `yaml:",inline"`
}

// Config is the full YAML structure of a pbekit config file.
type Config struct {
	Defaults     EncryptionConfig `yaml:"defaults,omitempty"`
	Profiles     []ProfileConfig  `yaml:"profiles,omitempty"`
	Passwords    []string         `yaml:"passwords,omitempty"`
	PasswordFile string           `yaml:"passwordFile,omitempty"`
}

// LoadConfig reads a YAML config file. An empty path returns an empty
// Config. Unknown keys are rejected so typos do not silently fall back to
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	seen := make(map[string]bool, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("parsing config %s: profile without a name", path)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("parsing config %s: duplicate profile %q", path, p.Name)
		}
		seen[p.Name] = true
	}
	return &cfg, nil
}

// Encryption returns the encryption settings for the named profile layered
// over the file defaults. An empty name returns the defaults alone.
func (c *Config) Encryption(profile string) (EncryptionConfig, error) {
	if profile == "" {
		return c.Defaults, nil
	}
	for _, p := range c.Profiles {
		if p.Name == profile {
			return p.EncryptionConfig.Over(c.Defaults), nil
		}
	}
	return EncryptionConfig{}, fmt.Errorf("unknown profile %q", profile)
}

// Over returns e with every unset field taken from base.
func (e EncryptionConfig) Over(base EncryptionConfig) EncryptionConfig {
	if e.Cipher == "" {
		e.Cipher = base.Cipher
	}
	if e.PRF == "" {
		e.PRF = base.PRF
	}
	if e.Iterations == 0 {
		e.Iterations = base.Iterations
	}
	if e.SaltLength == 0 {
		e.SaltLength = base.SaltLength
	}
	return e
}

// Options converts e to PKCS#8 encryption options. Unset fields keep the
// library defaults. The cipher must be usable with PBES2.
func (e EncryptionConfig) Options() (*pbekit.PKCS8Options, error) {
	opts := &pbekit.PKCS8Options{Iterations: e.Iterations, SaltLen: e.SaltLength}
	if e.Cipher != "" {
		kind, err := pbekit.ParseCipherKind(e.Cipher)
		if err != nil {
			return nil, err
		}
		if !kind.PBES2() {
			return nil, fmt.Errorf("cipher %s can only be decrypted, not used for encryption", kind)
		}
		opts.Cipher = kind
	}
	if e.PRF != "" {
		prf, err := ParsePRF(e.PRF)
		if err != nil {
			return nil, err
		}
		opts.PRF = prf
	}
	if e.Iterations > pbekit.MaxIterations {
		return nil, fmt.Errorf("%w: %d iterations", pbekit.ErrUnacceptableIterationCount, e.Iterations)
	}
	if e.SaltLength < 0 {
		return nil, fmt.Errorf("invalid salt length %d", e.SaltLength)
	}
	if e.SaltLength > pbekit.MaxSaltLen {
		return nil, fmt.Errorf("%w: salt length %d exceeds %d", pbekit.ErrAllocationFailure, e.SaltLength, pbekit.MaxSaltLen)
	}
	return opts, nil
}

var prfNames = map[string]crypto.Hash{
	"sha1":   crypto.SHA1,
	"sha224": crypto.SHA224,
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

// PRFNames lists the accepted --prf values.
func PRFNames() []string {
	return []string{"sha1", "sha224", "sha256", "sha384", "sha512"}
}

// ParsePRF maps a PBKDF2 PRF name such as "sha256", "SHA-256", or
// "hmacWithSHA256" to its digest.
func ParsePRF(name string) (crypto.Hash, error) {
	n := strings.ToLower(name)
	n = strings.TrimPrefix(n, "hmacwith")
	n = strings.ReplaceAll(n, "-", "")
	if h, ok := prfNames[n]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("%w: PRF %q", pbekit.ErrUnsupportedAlgorithm, name)
}
