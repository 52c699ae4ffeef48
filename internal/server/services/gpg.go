package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/cryptox"
	"github.com/dmitrijs2005/gpgvault/internal/gpg"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/repomanager"
)

// GPGService runs cryptographic operations with an account's stored key
// material. Key loading, unsealing of the private half, and passphrase
// re-derivation are handled here; the executor only ever sees armored key
// text and a passphrase for one isolated call.
type GPGService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	executor    gpg.Executor
	users       *UserService
	logger      logging.Logger
}

// NewGPGService constructs a GPGService sharing the UserService's derivation
// chain so keyring passphrases match the ones used at key generation.
func NewGPGService(db *sql.DB, m repomanager.RepositoryManager, e gpg.Executor, users *UserService, l logging.Logger) *GPGService {
	return &GPGService{
		db:          db,
		repomanager: m,
		executor:    e,
		users:       users,
		logger:      l.With("module", "gpg_service"),
	}
}

// Sign produces a detached armored signature over data with the account's
// private key.
func (s *GPGService) Sign(ctx context.Context, account *models.Account, data []byte) ([]byte, error) {
	priv, passphrase, err := s.privateKey(ctx, account)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(priv)
	defer common.WipeByteArray([]byte(passphrase))

	sig, err := s.executor.Sign(ctx, data, string(priv), passphrase)
	if err != nil {
		return nil, s.operationError(ctx, account, "sign", err)
	}
	return sig, nil
}

// VerifySignature checks a detached signature over data against the account's
// public key. A non-matching signature is (false, nil), not an error.
func (s *GPGService) VerifySignature(ctx context.Context, account *models.Account, data, signature []byte) (bool, error) {
	pub, err := s.publicKey(ctx, account)
	if err != nil {
		return false, err
	}

	ok, err := s.executor.Verify(ctx, data, signature, pub)
	if err != nil {
		return false, s.operationError(ctx, account, "verify", err)
	}
	return ok, nil
}

// Encrypt encrypts data for the account's own key.
func (s *GPGService) Encrypt(ctx context.Context, account *models.Account, data []byte) ([]byte, error) {
	pub, err := s.publicKey(ctx, account)
	if err != nil {
		return nil, err
	}

	ct, err := s.executor.Encrypt(ctx, data, pub)
	if err != nil {
		return nil, s.operationError(ctx, account, "encrypt", err)
	}
	return ct, nil
}

// Decrypt decrypts data with the account's private key.
func (s *GPGService) Decrypt(ctx context.Context, account *models.Account, data []byte) ([]byte, error) {
	priv, passphrase, err := s.privateKey(ctx, account)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(priv)
	defer common.WipeByteArray([]byte(passphrase))

	pt, err := s.executor.Decrypt(ctx, data, string(priv), passphrase)
	if err != nil {
		return nil, s.operationError(ctx, account, "decrypt", err)
	}
	return pt, nil
}

// PublicKey returns the account's stored armored public key.
func (s *GPGService) PublicKey(ctx context.Context, account *models.Account) (string, error) {
	return s.publicKey(ctx, account)
}

func (s *GPGService) publicKey(ctx context.Context, account *models.Account) (string, error) {
	km, err := s.repomanager.Keys(s.db).GetByAccountAndRole(ctx, account.ID, models.KeyRolePublic)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNoKeyMaterial
		}
		return "", common.ErrorInternal
	}
	return string(km.Armored), nil
}

// privateKey loads and unseals the account's private key and re-derives the
// keyring passphrase that protected it at generation time.
func (s *GPGService) privateKey(ctx context.Context, account *models.Account) ([]byte, string, error) {
	km, err := s.repomanager.Keys(s.db).GetByAccountAndRole(ctx, account.ID, models.KeyRolePrivate)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorNoKeyMaterial
		}
		return nil, "", common.ErrorInternal
	}

	priv, err := cryptox.DecryptKeyMaterial(km.Armored, account.Verifier)
	if err != nil {
		s.logger.Error(ctx, "unsealing private key failed", "account", account.Handle, "error", err.Error())
		return nil, "", common.ErrorInternal
	}

	return priv, s.users.KeyringPassphrase(account), nil
}

// operationError keeps tool stderr out of caller-visible errors; it is logged
// and replaced with the operation name.
func (s *GPGService) operationError(ctx context.Context, account *models.Account, op string, err error) error {
	var opErr *gpg.OperationError
	if errors.As(err, &opErr) {
		s.logger.Error(ctx, "gpg operation failed",
			"account", account.Handle, "op", op, "stderr", opErr.Stderr)
		return fmt.Errorf("%w: gpg %s failed", common.ErrorInternal, op)
	}
	s.logger.Error(ctx, "gpg operation failed", "account", account.Handle, "op", op, "error", err.Error())
	return common.ErrorInternal
}
