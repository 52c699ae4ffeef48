// Package admin implements operator authentication: a nonce challenge signed
// with a pre-registered GPG key is exchanged for a time-limited bearer token.
// Tokens are HMAC-derived from the server secret and never stored; challenges
// live in process memory and are consumed on first use.
package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/gpg"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/config"
)

const nonceSize = 32

// Engine issues and verifies challenges and tokens for the configured set of
// operator keys.
type Engine struct {
	secret            []byte
	keys              map[string]string
	executor          gpg.Executor
	challengeValidity time.Duration
	tokenValidity     time.Duration
	logger            logging.Logger
	now               func() time.Time

	mu         sync.Mutex
	challenges map[string]challengeRecord
}

type challengeRecord struct {
	handle string
	issued time.Time
}

// NewEngine builds an Engine from server config. The AdminKeys map pairs each
// operator handle with its armored public key; an empty map disables admin
// auth entirely (every verification fails).
func NewEngine(cfg *config.Config, executor gpg.Executor, logger logging.Logger) *Engine {
	keys := make(map[string]string, len(cfg.AdminKeys))
	for handle, armored := range cfg.AdminKeys {
		keys[handle] = armored
	}
	return &Engine{
		secret:            []byte(cfg.SecretKey),
		keys:              keys,
		executor:          executor,
		challengeValidity: time.Duration(cfg.ChallengeValiditySeconds) * time.Second,
		tokenValidity:     time.Duration(cfg.AdminTokenValiditySeconds) * time.Second,
		logger:            logger.With("module", "admin"),
		now:               time.Now,
	}
}

// Handles returns the operator handles admitted by this engine.
func (e *Engine) Handles() []string {
	handles := make([]string, 0, len(e.keys))
	for h := range e.keys {
		handles = append(handles, h)
	}
	return handles
}

// IssueChallenge returns a fresh single-use challenge of the form
// "<nonce>:<unixSeconds>" bound to one operator handle, remembered until it
// is consumed or expires. An unknown handle fails like any other auth error.
func (e *Engine) IssueChallenge(handle string) (challenge string, expiresAt time.Time, err error) {
	if _, known := e.keys[handle]; !known {
		return "", time.Time{}, common.ErrorUnauthorized
	}

	nonce := base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(nonceSize))
	issued := e.now()
	challenge = fmt.Sprintf("%s:%d", nonce, issued.Unix())

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(issued)
	e.challenges[challenge] = challengeRecord{handle: handle, issued: issued}

	return challenge, issued.Add(e.challengeValidity), nil
}

// pruneLocked drops expired challenges so abandoned ones cannot accumulate.
// Caller holds e.mu.
func (e *Engine) pruneLocked(now time.Time) {
	if e.challenges == nil {
		e.challenges = map[string]challengeRecord{}
		return
	}
	for c, rec := range e.challenges {
		if now.Sub(rec.issued) > e.challengeValidity {
			delete(e.challenges, c)
		}
	}
}

// consume atomically removes the challenge and returns its handle. Removal
// happens before any signature work so a challenge can never be replayed,
// even concurrently.
func (e *Engine) consume(challenge string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.challenges[challenge]
	if !ok {
		return "", false
	}
	delete(e.challenges, challenge)
	if e.now().Sub(rec.issued) > e.challengeValidity {
		return "", false
	}
	return rec.handle, true
}

// VerifyChallenge checks a detached signature over a previously issued
// challenge against the claimed handle's key and, on a match, mints a bearer
// token. The claimed handle must be the one the challenge was issued for.
// Unknown, expired, consumed, and badly-signed challenges all fail
// identically.
func (e *Engine) VerifyChallenge(ctx context.Context, handle, challenge string, signature []byte) (string, error) {
	bound, ok := e.consume(challenge)
	if !ok || bound != handle {
		return "", common.ErrorUnauthorized
	}

	armored, known := e.keys[handle]
	if !known {
		return "", common.ErrorUnauthorized
	}

	valid, verr := e.executor.Verify(ctx, []byte(challenge), signature, armored)
	if verr != nil {
		e.logger.Error(ctx, "admin signature check failed", "handle", handle, "error", verr.Error())
		return "", common.ErrorUnauthorized
	}
	if !valid {
		return "", common.ErrorUnauthorized
	}
	return e.MintToken(handle), nil
}

// MintToken derives the bearer token for a handle at the current instant:
//
//	admin_<handle>_<unixSeconds>_<truncated HMAC>
//
// Nothing is persisted; VerifyToken recomputes the same MAC.
func (e *Engine) MintToken(handle string) string {
	ts := e.now().Unix()
	return fmt.Sprintf("admin_%s_%d_%s", handle, ts, tokenMAC(e.secret, handle, ts))
}

// VerifyToken validates a bearer token and returns the operator handle it was
// minted for. The underscore framing admits exactly four fields, so handles
// containing underscores can never authenticate as operators.
func (e *Engine) VerifyToken(token string) (string, error) {
	parts := strings.Split(token, "_")
	if len(parts) != 4 || parts[0] != "admin" {
		return "", common.ErrorUnauthorized
	}
	handle := parts[1]

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", common.ErrorUnauthorized
	}

	age := e.now().Sub(time.Unix(ts, 0))
	if age < 0 || age > e.tokenValidity {
		return "", common.ErrorUnauthorized
	}

	if !macEqual(parts[3], tokenMAC(e.secret, handle, ts)) {
		return "", common.ErrorUnauthorized
	}
	if _, known := e.keys[handle]; !known {
		return "", common.ErrorUnauthorized
	}
	return handle, nil
}
