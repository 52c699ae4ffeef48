// Package gpg drives an external OpenPGP-compatible binary for signing,
// verification, encryption, and decryption. Every operation runs inside a
// freshly created keyring directory with an isolated environment, so no key
// material survives a call or leaks between callers.
package gpg

import "slices"

// Invocation is a fully specified, not-yet-executed command: the ordered
// argument list plus an optional secret payload that must be delivered on
// stdin rather than as an argument (arguments are visible in process
// listings, stdin is not). It is built by CommandBuilder and owned by the
// executor for the duration of one call.
type Invocation struct {
	Args  []string
	Stdin []byte
}

// CommandBuilder assembles gpg argument lists with a chainable interface.
// Configuration methods append flags, operation methods append positionals;
// Build has no side effects, which keeps construction unit-testable without
// running anything.
type CommandBuilder struct {
	args  []string
	stdin []byte
}

// NewCommandBuilder starts a command bound to the given keyring home.
// Batch mode is always on; nothing this package runs may prompt.
func NewCommandBuilder(binary, home string) *CommandBuilder {
	return &CommandBuilder{args: []string{binary, "--homedir", home, "--batch"}}
}

// WithYes auto-confirms overwrite and similar prompts.
func (b *CommandBuilder) WithYes() *CommandBuilder {
	b.args = append(b.args, "--yes")
	return b
}

// WithPinentryLoopback routes passphrase entry through the loopback pinentry,
// keeping the run non-interactive.
func (b *CommandBuilder) WithPinentryLoopback() *CommandBuilder {
	b.args = append(b.args, "--pinentry-mode", "loopback")
	return b
}

// WithTrustAlways disables the web-of-trust check. Safe here: the keyring
// holds exactly the key the caller supplied.
func (b *CommandBuilder) WithTrustAlways() *CommandBuilder {
	b.args = append(b.args, "--trust-model", "always")
	return b
}

// WithPassphraseStdin arranges for the passphrase to be read from fd 0 and
// records it as the invocation's stdin payload. An empty passphrase is a
// no-op.
func (b *CommandBuilder) WithPassphraseStdin(passphrase string) *CommandBuilder {
	if passphrase != "" {
		b.args = append(b.args, "--passphrase-fd", "0")
		b.stdin = []byte(passphrase + "\n")
	}
	return b
}

// Sign configures detached signature creation of inputPath into outputPath.
func (b *CommandBuilder) Sign(inputPath, outputPath string) *CommandBuilder {
	b.args = append(b.args, "--output", outputPath, "--detach-sign", inputPath)
	return b
}

// Verify configures verification of the detached signature at sigPath over
// inputPath.
func (b *CommandBuilder) Verify(sigPath, inputPath string) *CommandBuilder {
	b.args = append(b.args, "--verify", sigPath, inputPath)
	return b
}

// Encrypt configures encryption of inputPath for recipient into outputPath.
// The recipient should be a fingerprint, not a display name.
func (b *CommandBuilder) Encrypt(inputPath, outputPath, recipient string) *CommandBuilder {
	b.args = append(b.args, "--output", outputPath, "--encrypt", "--recipient", recipient, inputPath)
	return b
}

// Decrypt configures decryption of inputPath into outputPath.
func (b *CommandBuilder) Decrypt(inputPath, outputPath string) *CommandBuilder {
	b.args = append(b.args, "--output", outputPath, "--decrypt", inputPath)
	return b
}

// ListKeys configures machine-readable key enumeration.
func (b *CommandBuilder) ListKeys() *CommandBuilder {
	b.args = append(b.args, "--list-keys", "--with-colons")
	return b
}

// Import configures importing an armored key file into the keyring.
func (b *CommandBuilder) Import(keyPath string) *CommandBuilder {
	b.args = append(b.args, "--import", keyPath)
	return b
}

// Build returns the finished invocation. The argument slice is cloned so
// later builder reuse cannot mutate an invocation already handed out.
func (b *CommandBuilder) Build() Invocation {
	return Invocation{Args: slices.Clone(b.args), Stdin: b.stdin}
}
