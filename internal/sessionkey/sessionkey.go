// Package sessionkey implements deterministic, time-windowed session
// credential derivation.
//
// A credential is derived from the account's stored password verifier and
// salt, never stored, and re-derivable by anyone holding the same inputs:
//
//	masterSecret = PBKDF2-HMAC-SHA256(verifier, salt, iterations, 32)
//	sessionKey   = "sk_" + base64url(HMAC-SHA256(masterSecret, "session_key_v1:<window>"))
//
// where window = floor(unixTime / windowSeconds). Verification recomputes the
// expected credential from stored state only; the caller's raw secret is not
// required. That is the scheme's defining property (and documented trade-off):
// read access to (verifier, salt) is sufficient to mint valid tokens.
package sessionkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// Prefix marks externally presented session credentials.
const Prefix = "sk_"

// Defaults; all three are configurable via Params.
const (
	DefaultIterations    = 100000
	DefaultWindowSeconds = 3600
	DefaultGraceSeconds  = 600
)

const masterSecretLen = 32

// Params bundles the derivation configuration.
type Params struct {
	Iterations    int
	WindowSeconds int64
	GraceSeconds  int64
}

// DefaultParams returns the production defaults: 100000 PBKDF2 iterations,
// one-hour windows, ten-minute grace.
func DefaultParams() Params {
	return Params{
		Iterations:    DefaultIterations,
		WindowSeconds: DefaultWindowSeconds,
		GraceSeconds:  DefaultGraceSeconds,
	}
}

// WindowIndex returns the session window containing now.
func (p Params) WindowIndex(now time.Time) int64 {
	return now.Unix() / p.WindowSeconds
}

// WindowBounds returns the start, end, and grace-end instants of a window.
func (p Params) WindowBounds(windowIndex int64) (start, end, graceEnd time.Time) {
	startUnix := windowIndex * p.WindowSeconds
	start = time.Unix(startUnix, 0).UTC()
	end = time.Unix(startUnix+p.WindowSeconds, 0).UTC()
	graceEnd = end.Add(time.Duration(p.GraceSeconds) * time.Second)
	return start, end, graceEnd
}

// withinGrace reports whether now still falls inside the previous window's
// grace period, i.e. inside the first GraceSeconds of the current window.
func (p Params) withinGrace(now time.Time) bool {
	windowStart := p.WindowIndex(now) * p.WindowSeconds
	return now.Unix()-windowStart < p.GraceSeconds
}

// DeriveMasterSecret stretches the stored verifier with the account salt.
func (p Params) DeriveMasterSecret(verifier, salt []byte) []byte {
	return pbkdf2.Key(verifier, salt, p.Iterations, masterSecretLen, sha256.New)
}

// DeriveSessionKey derives the credential for one window from a master
// secret. Byte-identical for identical inputs.
func DeriveSessionKey(masterSecret []byte, windowIndex int64) string {
	mac := hmac.New(sha256.New, masterSecret)
	fmt.Fprintf(mac, "session_key_v1:%d", windowIndex)
	return Prefix + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Derive is the issue path: stored verifier + salt + window straight to the
// presented token.
func (p Params) Derive(verifier, salt []byte, windowIndex int64) string {
	return DeriveSessionKey(p.DeriveMasterSecret(verifier, salt), windowIndex)
}

// Verify checks a presented token against the credential expected for the
// current window and, within the grace period, the previous one. Both
// candidates are always derived and compared in constant time so the grace
// boundary is not observable through timing. Returns the matched window index.
func (p Params) Verify(verifier, salt []byte, token string, now time.Time) (int64, bool) {
	if !strings.HasPrefix(token, Prefix) {
		return 0, false
	}

	secret := p.DeriveMasterSecret(verifier, salt)
	current := p.WindowIndex(now)
	previous := current - 1

	expectedCurrent := DeriveSessionKey(secret, current)
	expectedPrevious := DeriveSessionKey(secret, previous)

	validCurrent := hmac.Equal([]byte(token), []byte(expectedCurrent))
	validPrevious := hmac.Equal([]byte(token), []byte(expectedPrevious))

	switch {
	case validCurrent:
		return current, true
	case validPrevious && p.withinGrace(now):
		return previous, true
	default:
		return 0, false
	}
}
