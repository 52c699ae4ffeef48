package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dmitrijs2005/gpgvault/internal/logging"
)

// Executor is the capability boundary around the external OpenPGP tool.
// Services depend on this interface, never on subprocess mechanics, so tests
// substitute a fake.
type Executor interface {
	// Sign produces a detached armored signature over data with the given
	// armored private key.
	Sign(ctx context.Context, data []byte, privateKey, passphrase string) ([]byte, error)

	// Verify checks a detached signature over data against an armored public
	// key. A failed check is (false, nil); errors are reserved for the tool
	// itself being unusable.
	Verify(ctx context.Context, data, signature []byte, publicKey string) (bool, error)

	// Encrypt encrypts data for the holder of the armored public key. The
	// recipient is addressed by fingerprint discovered from the keyring, not
	// by display name.
	Encrypt(ctx context.Context, data []byte, publicKey string) ([]byte, error)

	// Decrypt decrypts data with the given armored private key.
	Decrypt(ctx context.Context, data []byte, privateKey, passphrase string) ([]byte, error)

	// ListKeys returns the raw machine-readable key listing for the given
	// armored public key.
	ListKeys(ctx context.Context, publicKey string) (string, error)

	// GenerateKeyPair creates a fresh RSA signing+encryption key pair and
	// returns both armored halves. Nothing persists outside the returned
	// values.
	GenerateKeyPair(ctx context.Context, name, email, passphrase string) (publicKey, privateKey string, err error)
}

// Result captures one finished invocation.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// runFunc abstracts process execution for tests.
type runFunc func(ctx context.Context, inv Invocation, env []string) (stdout, stderr []byte, err error)

// CLIExecutor shells out to a gpg binary. Every operation provisions a
// private 0700 keyring directory, imports only the key material that call
// needs, runs with an environment that disables the agent and all prompting,
// and removes the directory on every exit path.
//
// The gpg-agent kill before each run is process-global: it can race with a
// concurrent operation whose agent (spawned by older gpg builds) is still
// alive. Per-call GNUPGHOME scoping keeps keyrings disjoint regardless; the
// kill only guards against cached passphrases in a stray shared agent.
type CLIExecutor struct {
	binary string
	logger logging.Logger
	run    runFunc
}

var _ Executor = (*CLIExecutor)(nil)

// NewCLIExecutor returns an executor driving the given gpg binary.
func NewCLIExecutor(binary string, logger logging.Logger) *CLIExecutor {
	return &CLIExecutor{
		binary: binary,
		logger: logger.With("module", "gpg_executor"),
		run:    execRun,
	}
}

func execRun(ctx context.Context, inv Invocation, env []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Env = env
	if inv.Stdin != nil {
		cmd.Stdin = bytes.NewReader(inv.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// isolatedEnv redirects the tool's home into the workspace and strips every
// channel it could use to prompt or reach a long-lived agent.
func isolatedEnv(home string) []string {
	env := os.Environ()
	env = append(env,
		"GNUPGHOME="+home,
		"GPG_AGENT_INFO=",
		"GPG_TTY=",
		"DISPLAY=",
		"PINENTRY_USER_DATA=USE_CURSES=0",
	)
	return env
}

// newWorkspace allocates the disposable keyring home. The returned cleanup is
// unconditional and must run on every exit path.
func (c *CLIExecutor) newWorkspace() (string, func(), error) {
	dir, err := os.MkdirTemp("", "gpgvault-keyring-*")
	if err != nil {
		return "", nil, fmt.Errorf("allocating keyring workspace: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("restricting keyring workspace: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// killAgent terminates any background gpg-agent so no cached key material
// carries over between isolated operations. Failure is ignored: no agent
// running is the desired state.
func (c *CLIExecutor) killAgent(ctx context.Context) {
	inv := Invocation{Args: []string{"gpgconf", "--kill", "gpg-agent"}}
	_, _, _ = c.run(ctx, inv, os.Environ())
}

// execute runs one built invocation inside home and maps a non-zero exit to
// an OperationError carrying the operation name and captured stderr.
func (c *CLIExecutor) execute(ctx context.Context, inv Invocation, op, home string) (*Result, error) {
	c.killAgent(ctx)

	stdout, stderr, err := c.run(ctx, inv, isolatedEnv(home))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &OperationError{Op: op, Stderr: string(stderr)}
		}
		return nil, fmt.Errorf("running gpg %s: %w", op, err)
	}
	return &Result{Stdout: stdout, Stderr: stderr}, nil
}

// importKey writes armored key text into the workspace and imports it. When
// fatal is false a failed import is logged and swallowed: verification and
// encryption against a missing key fail predictably on their own, while
// signing and decryption without the private key are meaningless.
func (c *CLIExecutor) importKey(ctx context.Context, home, armored, kind string, fatal bool) error {
	keyPath := filepath.Join(home, kind+".asc")
	if err := os.WriteFile(keyPath, []byte(armored), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", kind, err)
	}

	inv := NewCommandBuilder(c.binary, home).Import(keyPath).Build()
	if _, err := c.execute(ctx, inv, "import", home); err != nil {
		if fatal {
			return err
		}
		c.logger.Warn(ctx, "key import failed, continuing", "kind", kind, "error", err.Error())
	}
	return nil
}

func (c *CLIExecutor) Sign(ctx context.Context, data []byte, privateKey, passphrase string) ([]byte, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := c.importKey(ctx, home, privateKey, "privkey", true); err != nil {
		return nil, err
	}

	dataPath := filepath.Join(home, "data.txt")
	sigPath := filepath.Join(home, "data.sig")
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return nil, err
	}

	inv := NewCommandBuilder(c.binary, home).
		WithYes().
		WithPinentryLoopback().
		WithPassphraseStdin(passphrase).
		Sign(dataPath, sigPath).
		Build()
	if _, err := c.execute(ctx, inv, "signing", home); err != nil {
		return nil, err
	}

	return os.ReadFile(sigPath)
}

func (c *CLIExecutor) Verify(ctx context.Context, data, signature []byte, publicKey string) (bool, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return false, err
	}
	defer cleanup()

	// Tolerant import: a missing key just yields a failed verification.
	if err := c.importKey(ctx, home, publicKey, "pubkey", false); err != nil {
		return false, err
	}

	dataPath := filepath.Join(home, "data.txt")
	sigPath := filepath.Join(home, "data.sig")
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return false, err
	}
	if err := os.WriteFile(sigPath, signature, 0o600); err != nil {
		return false, err
	}

	inv := NewCommandBuilder(c.binary, home).
		WithTrustAlways().
		Verify(sigPath, dataPath).
		Build()
	if _, err := c.execute(ctx, inv, "verification", home); err != nil {
		var opErr *OperationError
		if errors.As(err, &opErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *CLIExecutor) Encrypt(ctx context.Context, data []byte, publicKey string) ([]byte, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := c.importKey(ctx, home, publicKey, "pubkey", false); err != nil {
		return nil, err
	}

	// Encryption targets the fingerprint, not a display name, so two keys
	// sharing a uid cannot be confused.
	listInv := NewCommandBuilder(c.binary, home).ListKeys().Build()
	listRes, err := c.execute(ctx, listInv, "key listing", home)
	if err != nil {
		return nil, err
	}
	fpr, ok := ParseFingerprint(string(listRes.Stdout))
	if !ok {
		return nil, &OperationError{Op: "encryption", Stderr: "could not extract key fingerprint"}
	}

	dataPath := filepath.Join(home, "data.txt")
	encPath := filepath.Join(home, "data.enc")
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return nil, err
	}

	inv := NewCommandBuilder(c.binary, home).
		WithYes().
		WithTrustAlways().
		Encrypt(dataPath, encPath, fpr).
		Build()
	if _, err := c.execute(ctx, inv, "encryption", home); err != nil {
		return nil, err
	}

	return os.ReadFile(encPath)
}

func (c *CLIExecutor) Decrypt(ctx context.Context, data []byte, privateKey, passphrase string) ([]byte, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := c.importKey(ctx, home, privateKey, "privkey", true); err != nil {
		return nil, err
	}

	encPath := filepath.Join(home, "data.enc")
	decPath := filepath.Join(home, "data.dec")
	if err := os.WriteFile(encPath, data, 0o600); err != nil {
		return nil, err
	}

	inv := NewCommandBuilder(c.binary, home).
		WithYes().
		WithPinentryLoopback().
		WithPassphraseStdin(passphrase).
		Decrypt(encPath, decPath).
		Build()
	if _, err := c.execute(ctx, inv, "decryption", home); err != nil {
		return nil, err
	}

	return os.ReadFile(decPath)
}

func (c *CLIExecutor) ListKeys(ctx context.Context, publicKey string) (string, error) {
	home, cleanup, err := c.newWorkspace()
	if err != nil {
		return "", err
	}
	defer cleanup()

	if err := c.importKey(ctx, home, publicKey, "pubkey", false); err != nil {
		return "", err
	}

	inv := NewCommandBuilder(c.binary, home).ListKeys().Build()
	res, err := c.execute(ctx, inv, "key listing", home)
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}
