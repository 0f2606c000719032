package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/sensiblebit/pbekit"
	"github.com/sensiblebit/pbekit/internal"
)

// withCLIState resets the package-level flag and config state for one test
// and restores it afterwards.
func withCLIState(t *testing.T) {
	t.Helper()
	savedCfg, savedList, savedFile := cfg, passwordList, passwordFile
	savedOut, savedDER, savedAlias := decryptOutPath, decryptDER, decryptAlias
	t.Cleanup(func() {
		cfg, passwordList, passwordFile = savedCfg, savedList, savedFile
		decryptOutPath, decryptDER, decryptAlias = savedOut, savedDER, savedAlias
	})
	cfg = &internal.Config{}
	passwordList, passwordFile = nil, ""
	decryptOutPath, decryptDER, decryptAlias = "", false, ""
}

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunDecrypt(t *testing.T) {
	// WHY: decrypt must write exactly the unencrypted PKCS#8 that the library marshals, in PEM by default and raw DER with --der.
	withCLIState(t)
	dir := t.TempDir()

	key := newTestKey(t)
	enc, err := pbekit.MarshalEncryptedPrivateKeyToPEM(key, []byte("s3cret"), &pbekit.PKCS8Options{Iterations: 16})
	if err != nil {
		t.Fatalf("MarshalEncryptedPrivateKeyToPEM: %v", err)
	}
	in := writeTestFile(t, dir, "key.enc.pem", []byte(enc))
	passwordList = []string{"s3cret"}

	decryptOutPath = filepath.Join(dir, "key.pem")
	if err := runDecrypt(decryptCmd, []string{in}); err != nil {
		t.Fatalf("runDecrypt: %v", err)
	}
	got, err := os.ReadFile(decryptOutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want, err := pbekit.MarshalPrivateKeyToPEM(key)
	if err != nil {
		t.Fatalf("MarshalPrivateKeyToPEM: %v", err)
	}
	if string(got) != want {
		t.Errorf("PEM output = %q, want %q", got, want)
	}

	decryptOutPath, decryptDER = filepath.Join(dir, "key.der"), true
	if err := runDecrypt(decryptCmd, []string{in}); err != nil {
		t.Fatalf("runDecrypt --der: %v", err)
	}
	gotDER, err := os.ReadFile(decryptOutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	wantDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	if !bytes.Equal(gotDER, wantDER) {
		t.Error("DER output differs from PKCS#8 marshaling of the key")
	}
}

func TestEffectivePasswordFile(t *testing.T) {
	// WHY: The config's passwordFile applies to both the passwords tried on input and the encryption password; the flag overrides it in both places.
	withCLIState(t)

	if got := effectivePasswordFile(); got != "" {
		t.Errorf("no flag, no config = %q, want empty", got)
	}
	cfg = &internal.Config{PasswordFile: "from-config.txt"}
	if got := effectivePasswordFile(); got != "from-config.txt" {
		t.Errorf("config only = %q", got)
	}
	passwordFile = "from-flag.txt"
	if got := effectivePasswordFile(); got != "from-flag.txt" {
		t.Errorf("flag and config = %q, want flag", got)
	}
}

func TestEncryptAndWrite_ConfigPasswordFile(t *testing.T) {
	// WHY: With only a config passwordFile set, encrypt must take its first line as the new password, the same file decrypt reads candidates from.
	withCLIState(t)
	t.Setenv(internal.PasswordEnv, "")
	dir := t.TempDir()

	cfg = &internal.Config{PasswordFile: writeTestFile(t, dir, "passwords.txt", []byte("from-config\nsecond\n"))}
	key := newTestKey(t)
	f := encryptionFlags{
		settings: internal.EncryptionConfig{Iterations: 16},
		outPath:  filepath.Join(dir, "key.der"),
		der:      true,
	}
	if err := f.encryptAndWrite([]internal.KeyEntry{{Key: key, Format: internal.FormatPEM}}); err != nil {
		t.Fatalf("encryptAndWrite: %v", err)
	}

	der, err := os.ReadFile(f.outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got, err := pbekit.DecryptPKCS8PrivateKey(der, []byte("from-config"))
	if err != nil {
		t.Fatalf("DecryptPKCS8PrivateKey with config password: %v", err)
	}
	if !key.Equal(got) {
		t.Error("decrypted key differs")
	}
}
