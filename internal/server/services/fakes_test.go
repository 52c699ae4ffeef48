package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/dbx"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/config"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/keys"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// testConfig lowers the PBKDF2 iteration count so derivation-heavy tests stay
// fast; the derivation chain itself is identical.
func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "test-secret"
	c.Iterations = 16
	return c
}

type fakeAccountRepo struct {
	byHandle map[string]*models.Account
	byLegacy map[string]*models.Account

	createErr error
	getErr    error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byHandle: map[string]*models.Account{},
		byLegacy: map[string]*models.Account{},
	}
}

func (r *fakeAccountRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byHandle[a.Handle]; exists {
		return nil, fmt.Errorf("handle taken: %w", common.ErrorAlreadyExists)
	}
	created := *a
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	r.byHandle[a.Handle] = &created
	if a.LegacyKeyHash != "" {
		r.byLegacy[a.LegacyKeyHash] = &created
	}
	return &created, nil
}

func (r *fakeAccountRepo) GetByHandle(_ context.Context, handle string) (*models.Account, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.byHandle[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) GetByLegacyKeyHash(_ context.Context, hash string) (*models.Account, error) {
	a, ok := r.byLegacy[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type fakeKeyRepo struct {
	rows map[string]*models.KeyMaterial

	createErr error
	getErr    error
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{rows: map[string]*models.KeyMaterial{}}
}

func keyID(accountID string, role models.KeyRole) string {
	return accountID + "/" + string(role)
}

func (r *fakeKeyRepo) Create(_ context.Context, k *models.KeyMaterial) (*models.KeyMaterial, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	created := *k
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	r.rows[keyID(k.AccountID, k.Role)] = &created
	return &created, nil
}

func (r *fakeKeyRepo) GetByAccountAndRole(_ context.Context, accountID string, role models.KeyRole) (*models.KeyMaterial, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	k, ok := r.rows[keyID(accountID, role)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return k, nil
}

type fakeRepoManager struct {
	accounts *fakeAccountRepo
	keys     *fakeKeyRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{accounts: newFakeAccountRepo(), keys: newFakeKeyRepo()}
}

func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.accounts }
func (m *fakeRepoManager) Keys(dbx.DBTX) keys.Repository         { return m.keys }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

// fakeExecutor records calls and returns canned results.
type fakeExecutor struct {
	signErr    error
	verifyOK   bool
	verifyErr  error
	encryptErr error
	decryptErr error
	keygenErr  error

	lastPassphrase string
	lastPrivateKey string
	lastPublicKey  string
}

func (f *fakeExecutor) Sign(_ context.Context, data []byte, privateKey, passphrase string) ([]byte, error) {
	f.lastPrivateKey, f.lastPassphrase = privateKey, passphrase
	if f.signErr != nil {
		return nil, f.signErr
	}
	return append([]byte("sig:"), data...), nil
}

func (f *fakeExecutor) Verify(_ context.Context, _, _ []byte, publicKey string) (bool, error) {
	f.lastPublicKey = publicKey
	return f.verifyOK, f.verifyErr
}

func (f *fakeExecutor) Encrypt(_ context.Context, data []byte, publicKey string) ([]byte, error) {
	f.lastPublicKey = publicKey
	if f.encryptErr != nil {
		return nil, f.encryptErr
	}
	return append([]byte("enc:"), data...), nil
}

func (f *fakeExecutor) Decrypt(_ context.Context, data []byte, privateKey, passphrase string) ([]byte, error) {
	f.lastPrivateKey, f.lastPassphrase = privateKey, passphrase
	if f.decryptErr != nil {
		return nil, f.decryptErr
	}
	return append([]byte("dec:"), data...), nil
}

func (f *fakeExecutor) ListKeys(_ context.Context, publicKey string) (string, error) {
	f.lastPublicKey = publicKey
	return "pub:u:3072:1::::::", nil
}

func (f *fakeExecutor) GenerateKeyPair(_ context.Context, name, _, passphrase string) (string, string, error) {
	f.lastPassphrase = passphrase
	if f.keygenErr != nil {
		return "", "", f.keygenErr
	}
	return "PUBLIC KEY OF " + name, "PRIVATE KEY OF " + name, nil
}

// txDB returns a sqlmock-backed *sql.DB for exercising dbx.WithTx around the
// fake repositories.
func txDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}
