// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and stateless session-key
// authentication.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/cryptox"
	"github.com/dmitrijs2005/gpgvault/internal/dbx"
	"github.com/dmitrijs2005/gpgvault/internal/gpg"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/config"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gpgvault/internal/sessionkey"
)

const saltSize = 32

// Session describes one issued session credential and its validity window.
type Session struct {
	Key         string
	WindowIndex int64
	WindowStart time.Time
	ExpiresAt   time.Time
}

// UserService provides identity operations:
//   - Register: create an account and its key pair, issue the first session key
//   - Login: verify the password and issue the current window's session key
//   - VerifyCredential: authenticate a request by re-deriving the expected key
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	executor    gpg.Executor
	params      sessionkey.Params
	logger      logging.Logger
	now         func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, e gpg.Executor, cfg *config.Config, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		executor:    e,
		params:      cfg.SessionParams(),
		logger:      l.With("module", "user_service"),
		now:         time.Now,
	}
}

// Register creates an account, generates its key pair inside an isolated
// keyring, stores the public half as-is and the private half sealed under the
// verifier, and returns the account with its first session credential.
func (s *UserService) Register(ctx context.Context, handle, password string) (*models.Account, *Session, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	salt := common.GenerateRandByteArray(saltSize)
	verifier := cryptox.MakeVerifier([]byte(password), salt)

	var account *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, &models.Account{
			Handle: handle, Verifier: verifier, Salt: salt,
		})
		if err != nil {
			return err
		}

		// The keyring passphrase is derived from the same chain as session
		// credentials, so it is reproducible on every later request without
		// being stored anywhere.
		passphrase := s.keyringPassphrase(created)
		defer common.WipeByteArray([]byte(passphrase))

		pub, priv, err := s.executor.GenerateKeyPair(ctx, handle, handle+"@gpgvault.local", passphrase)
		if err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		sealed, err := cryptox.EncryptKeyMaterial([]byte(priv), created.Verifier)
		if err != nil {
			return fmt.Errorf("sealing private key: %w", err)
		}

		keysRepo := s.repomanager.Keys(tx)
		if _, err := keysRepo.Create(ctx, &models.KeyMaterial{
			AccountID: created.ID, Role: models.KeyRolePublic, Armored: []byte(pub),
		}); err != nil {
			return err
		}
		if _, err := keysRepo.Create(ctx, &models.KeyMaterial{
			AccountID: created.ID, Role: models.KeyRolePrivate, Armored: sealed,
		}); err != nil {
			return err
		}

		account = created
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorValidation) {
			return nil, nil, err
		}
		s.logger.Error(ctx, "registration failed", "handle", handle, "error", err.Error())
		return nil, nil, common.ErrorInternal
	}

	return account, s.issueSession(account), nil
}

// Login verifies the supplied secret against the stored verifier and, on
// success, returns the session credential for the current window. Idempotent
// within a window: repeated calls yield byte-identical keys.
func (s *UserService) Login(ctx context.Context, handle, password string) (*models.Account, *Session, error) {
	account, err := s.repomanager.Accounts(s.db).GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	candidate := cryptox.MakeVerifier([]byte(password), account.Salt)
	if subtle.ConstantTimeCompare(account.Verifier, candidate) != 1 {
		return nil, nil, common.ErrorUnauthorized
	}

	return account, s.issueSession(account), nil
}

// VerifyCredential authenticates a request. Tokens carrying the sk_ prefix
// are checked statelessly: the expected credential is re-derived from the
// account's stored verifier and salt, so the raw secret is not needed (the
// scheme's documented trade-off). Anything else is treated as a legacy opaque
// API key and matched by hash. All failures collapse into ErrorUnauthorized
// so callers cannot probe which handles exist.
func (s *UserService) VerifyCredential(ctx context.Context, handle, token string) (*models.Account, error) {
	if strings.HasPrefix(token, sessionkey.Prefix) {
		if handle == "" {
			return nil, common.ErrorUnauthorized
		}
		account, err := s.repomanager.Accounts(s.db).GetByHandle(ctx, handle)
		if err != nil {
			return nil, common.ErrorUnauthorized
		}
		if _, ok := s.params.Verify(account.Verifier, account.Salt, token, s.now()); !ok {
			return nil, common.ErrorUnauthorized
		}
		return account, nil
	}

	// Legacy fallback: opaque random credential, hash lookup, no windowing.
	account, err := s.repomanager.Accounts(s.db).GetByLegacyKeyHash(ctx, cryptox.HashLegacyKey(token))
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return account, nil
}

// KeyringPassphrase re-derives the passphrase protecting the account's
// generated private key.
func (s *UserService) KeyringPassphrase(account *models.Account) string {
	return s.keyringPassphrase(account)
}

// keyringPassphrase anchors the passphrase to the master secret rather than a
// single window's session key, so a key generated at registration stays
// unlockable in every later window.
func (s *UserService) keyringPassphrase(account *models.Account) string {
	secret := s.params.DeriveMasterSecret(account.Verifier, account.Salt)
	defer common.WipeByteArray(secret)
	return cryptox.DeriveKeyringPassphrase(hex.EncodeToString(secret), account.ID)
}

func (s *UserService) issueSession(account *models.Account) *Session {
	window := s.params.WindowIndex(s.now())
	key := s.params.Derive(account.Verifier, account.Salt, window)
	start, _, graceEnd := s.params.WindowBounds(window)
	return &Session{Key: key, WindowIndex: window, WindowStart: start, ExpiresAt: graceEnd}
}
