package gpg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// keygenBatch renders the unattended key generation script. RSA-3072 with a
// signing primary and an encryption subkey, no expiry. An empty passphrase
// produces an unprotected key (test fixtures only).
func keygenBatch(name, email, passphrase string) string {
	protection := "%no-protection\n"
	if passphrase != "" {
		protection = "Passphrase: " + passphrase + "\n"
	}
	return fmt.Sprintf(`Key-Type: RSA
Key-Length: 3072
Key-Usage: sign
Subkey-Type: RSA
Subkey-Length: 3072
Subkey-Usage: encrypt
Name-Real: %s
Name-Email: %s
Expire-Date: 0
%s%%commit
`, name, email, protection)
}

// GenerateKeyPair creates a key pair inside a disposable keyring and exports
// both armored halves. The private half never exists outside the workspace
// in unexported form, and the workspace is removed before returning.
func (c *CLIExecutor) GenerateKeyPair(ctx context.Context, name, email, passphrase string) (string, string, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return "", "", err
	}
	defer cleanup()

	batchPath := filepath.Join(home, "batch.txt")
	if err := os.WriteFile(batchPath, []byte(keygenBatch(name, email, passphrase)), 0o600); err != nil {
		return "", "", err
	}

	genInv := NewCommandBuilder(c.binary, home).
		WithPinentryLoopback().
		GenerateKey(batchPath).
		Build()
	if _, err := c.execute(ctx, genInv, "key generation", home); err != nil {
		return "", "", err
	}

	pubInv := NewCommandBuilder(c.binary, home).ExportPublic(email).Build()
	pubRes, err := c.execute(ctx, pubInv, "public key export", home)
	if err != nil {
		return "", "", err
	}

	privInv := NewCommandBuilder(c.binary, home).
		WithPinentryLoopback().
		WithPassphraseStdin(passphrase).
		ExportSecret(email).
		Build()
	privRes, err := c.execute(ctx, privInv, "private key export", home)
	if err != nil {
		return "", "", err
	}

	return string(pubRes.Stdout), string(privRes.Stdout), nil
}

// GenerateKey configures unattended key generation from a batch script.
func (b *CommandBuilder) GenerateKey(batchPath string) *CommandBuilder {
	b.args = append(b.args, "--gen-key", batchPath)
	return b
}

// ExportPublic configures an armored public key export for the given uid.
func (b *CommandBuilder) ExportPublic(uid string) *CommandBuilder {
	b.args = append(b.args, "--armor", "--export", uid)
	return b
}

// ExportSecret configures an armored private key export for the given uid.
func (b *CommandBuilder) ExportSecret(uid string) *CommandBuilder {
	b.args = append(b.args, "--armor", "--export-secret-keys", uid)
	return b
}
