package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/gpg"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
)

func newGPGFixture(t *testing.T) (*GPGService, *fakeExecutor, *models.Account) {
	t.Helper()
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	ex := &fakeExecutor{}
	users := NewUserService(db, rm, ex, testConfig(), discardLogger())

	account, _, err := users.Register(context.Background(), testHandle, testPassword)
	require.NoError(t, err)

	return NewGPGService(db, rm, ex, users, discardLogger()), ex, account
}

func TestGPGSign_UnsealsPrivateKey(t *testing.T) {
	svc, ex, account := newGPGFixture(t)

	sig, err := svc.Sign(context.Background(), account, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "sig:payload", string(sig))

	// The executor must receive the plaintext armored key and the same
	// passphrase the key was generated under.
	assert.Equal(t, "PRIVATE KEY OF "+testHandle, ex.lastPrivateKey)
	assert.Equal(t, svc.users.KeyringPassphrase(account), ex.lastPassphrase)
}

func TestGPGSign_OperationErrorIsSanitized(t *testing.T) {
	svc, ex, account := newGPGFixture(t)
	ex.signErr = &gpg.OperationError{Op: "signing", Stderr: "gpg: secret key not available"}

	_, err := svc.Sign(context.Background(), account, []byte("payload"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotContains(t, err.Error(), "secret key not available")
}

func TestGPGVerifySignature(t *testing.T) {
	svc, ex, account := newGPGFixture(t)

	ex.verifyOK = true
	ok, err := svc.VerifySignature(context.Background(), account, []byte("payload"), []byte("sig"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "PUBLIC KEY OF "+testHandle, ex.lastPublicKey)

	// A bad signature is a negative result, not an error.
	ex.verifyOK = false
	ok, err = svc.VerifySignature(context.Background(), account, []byte("payload"), []byte("sig"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGPGEncryptDecrypt(t *testing.T) {
	svc, ex, account := newGPGFixture(t)

	ct, err := svc.Encrypt(context.Background(), account, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "enc:payload", string(ct))
	assert.Equal(t, "PUBLIC KEY OF "+testHandle, ex.lastPublicKey)

	pt, err := svc.Decrypt(context.Background(), account, ct)
	require.NoError(t, err)
	assert.Equal(t, "dec:enc:payload", string(pt))
}

func TestGPG_NoKeyMaterial(t *testing.T) {
	db, _ := txDB(t)
	rm := newFakeRepoManager()
	ex := &fakeExecutor{}
	users := NewUserService(db, rm, ex, testConfig(), discardLogger())
	svc := NewGPGService(db, rm, ex, users, discardLogger())

	account := &models.Account{ID: "no-keys", Handle: "keyless"}

	_, err := svc.Sign(context.Background(), account, []byte("x"))
	assert.ErrorIs(t, err, common.ErrorNoKeyMaterial)

	_, err = svc.Encrypt(context.Background(), account, []byte("x"))
	assert.ErrorIs(t, err, common.ErrorNoKeyMaterial)

	_, err = svc.PublicKey(context.Background(), account)
	assert.ErrorIs(t, err, common.ErrorNoKeyMaterial)
}

func TestGPG_WrongVerifierCannotUnseal(t *testing.T) {
	svc, _, account := newGPGFixture(t)

	// Simulate stored verifier drift: unsealing must fail closed.
	broken := *account
	broken.Verifier = make([]byte, len(account.Verifier))

	_, err := svc.Sign(context.Background(), &broken, []byte("payload"))
	assert.ErrorIs(t, err, common.ErrorInternal)
}
