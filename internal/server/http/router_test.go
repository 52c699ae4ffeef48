package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/dbx"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/admin"
	"github.com/dmitrijs2005/gpgvault/internal/server/config"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/keys"
	"github.com/dmitrijs2005/gpgvault/internal/server/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

const operatorKey = "OPERATOR PUBLIC KEY"

type memAccounts struct {
	byHandle map[string]*models.Account
}

func (r *memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if _, exists := r.byHandle[a.Handle]; exists {
		return nil, common.ErrorAlreadyExists
	}
	created := *a
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	r.byHandle[a.Handle] = &created
	return &created, nil
}

func (r *memAccounts) GetByHandle(_ context.Context, handle string) (*models.Account, error) {
	a, ok := r.byHandle[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (r *memAccounts) GetByLegacyKeyHash(context.Context, string) (*models.Account, error) {
	return nil, common.ErrorNotFound
}

type memKeys struct {
	rows map[string]*models.KeyMaterial
}

func (r *memKeys) Create(_ context.Context, k *models.KeyMaterial) (*models.KeyMaterial, error) {
	created := *k
	created.ID = uuid.NewString()
	r.rows[k.AccountID+"/"+string(k.Role)] = &created
	return &created, nil
}

func (r *memKeys) GetByAccountAndRole(_ context.Context, accountID string, role models.KeyRole) (*models.KeyMaterial, error) {
	k, ok := r.rows[accountID+"/"+string(role)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return k, nil
}

type memRepoManager struct {
	accounts *memAccounts
	keys     *memKeys
}

func (m *memRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.accounts }

func (m *memRepoManager) Keys(dbx.DBTX) keys.Repository { return m.keys }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// stubExecutor treats "signed:<data>" as the valid signature for <data> and
// admin signatures as "signed-by:<armored key>".
type stubExecutor struct{}

func (stubExecutor) Sign(_ context.Context, data []byte, _, _ string) ([]byte, error) {
	return append([]byte("signed:"), data...), nil
}

func (stubExecutor) Verify(_ context.Context, data, signature []byte, publicKey string) (bool, error) {
	if string(signature) == "signed-by:"+publicKey {
		return true, nil
	}
	return string(signature) == "signed:"+string(data), nil
}

func (stubExecutor) Encrypt(_ context.Context, data []byte, _ string) ([]byte, error) {
	return append([]byte("enc:"), data...), nil
}

func (stubExecutor) Decrypt(_ context.Context, data []byte, _, _ string) ([]byte, error) {
	return bytes.TrimPrefix(data, []byte("enc:")), nil
}

func (stubExecutor) ListKeys(context.Context, string) (string, error) { return "", nil }

func (stubExecutor) GenerateKeyPair(_ context.Context, name, _, _ string) (string, string, error) {
	return "PUB " + name, "PRIV " + name, nil
}

type fixture struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "router-test-secret"
	cfg.Iterations = 16
	cfg.AdminKeys = map[string]string{"operator": operatorKey}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	rm := &memRepoManager{
		accounts: &memAccounts{byHandle: map[string]*models.Account{}},
		keys:     &memKeys{rows: map[string]*models.KeyMaterial{}},
	}
	ex := stubExecutor{}

	users := services.NewUserService(db, rm, ex, cfg, logger)
	gpgSvc := services.NewGPGService(db, rm, ex, users, logger)
	engine := admin.NewEngine(cfg, ex, logger)

	return &fixture{
		router: NewHandler(users, gpgSvc, engine, logger).Router(),
		mock:   mock,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (f *fixture) registerUser(t *testing.T, handle string) sessionResponse {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	w := f.do(t, http.MethodPost, "/users/register", credentialsRequest{Handle: handle, Password: "Sup3r!Secret"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionResponse](t, w)
}

func authHeaders(s sessionResponse) map[string]string {
	return map[string]string{headerAPIKey: s.SessionKey, headerUsername: s.Handle}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")
	assert.Contains(t, session.SessionKey, "sk_")

	w := f.do(t, http.MethodPost, "/users/login", credentialsRequest{Handle: "alice-01", Password: "Sup3r!Secret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.SessionKey, decode[sessionResponse](t, w).SessionKey)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/users/register", credentialsRequest{Handle: "ab", Password: "Sup3r!Secret"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/users/register", map[string]string{"handle": "alice-01"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice-01")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	w := f.do(t, http.MethodPost, "/users/register", credentialsRequest{Handle: "alice-01", Password: "Sup3r!Secret"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice-01")

	w := f.do(t, http.MethodPost, "/users/login", credentialsRequest{Handle: "alice-01", Password: "Wrong!Pass1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")

	w := f.do(t, http.MethodGet, "/users/profile", nil, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[profileResponse](t, w)
	assert.Equal(t, "alice-01", profile.Handle)
	assert.Equal(t, "PUB alice-01", profile.PublicKey)
}

func TestSessionAuth_Rejections(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")

	// no credentials at all
	w := f.do(t, http.MethodGet, "/users/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// session key without the handle it belongs to
	w = f.do(t, http.MethodGet, "/users/profile", nil, map[string]string{headerAPIKey: session.SessionKey})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong handle
	w = f.do(t, http.MethodGet, "/users/profile", nil, map[string]string{headerAPIKey: session.SessionKey, headerUsername: "bob-02"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGPGSignVerifyRoundTrip(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")
	payload := base64.StdEncoding.EncodeToString([]byte("document"))

	w := f.do(t, http.MethodPost, "/gpg/sign", signRequest{Data: payload}, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	signature := decode[signResponse](t, w).Signature

	w = f.do(t, http.MethodPost, "/gpg/verify", verifyRequest{Data: payload, Signature: signature}, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[verifyResponse](t, w).Valid)

	bad := base64.StdEncoding.EncodeToString([]byte("signed:other"))
	w = f.do(t, http.MethodPost, "/gpg/verify", verifyRequest{Data: payload, Signature: bad}, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[verifyResponse](t, w).Valid)
}

func TestGPGEncryptDecryptRoundTrip(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")
	payload := base64.StdEncoding.EncodeToString([]byte("document"))

	w := f.do(t, http.MethodPost, "/gpg/encrypt", cipherRequest{Data: payload}, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code)
	ct := decode[cipherResponse](t, w).Data

	w = f.do(t, http.MethodPost, "/gpg/decrypt", cipherRequest{Data: ct}, authHeaders(session))
	require.Equal(t, http.StatusOK, w.Code)
	pt, err := base64.StdEncoding.DecodeString(decode[cipherResponse](t, w).Data)
	require.NoError(t, err)
	assert.Equal(t, "document", string(pt))
}

func TestGPG_BadBase64(t *testing.T) {
	f := newFixture(t)
	session := f.registerUser(t, "alice-01")

	w := f.do(t, http.MethodPost, "/gpg/sign", signRequest{Data: "%%% not base64 %%%"}, authHeaders(session))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/admin/auth/challenge", challengeRequest{Handle: "operator"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	challenge := decode[challengeResponse](t, w)

	sig := base64.StdEncoding.EncodeToString([]byte("signed-by:" + operatorKey))
	w = f.do(t, http.MethodPost, "/admin/auth/verify", challengeVerifyRequest{Handle: "operator", Challenge: challenge.Challenge, Signature: sig}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[adminTokenResponse](t, w)
	assert.Equal(t, "operator", token.Handle)

	w = f.do(t, http.MethodGet, "/admin/auth/info", nil, map[string]string{headerAdminToken: token.Token})
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[adminInfoResponse](t, w)
	assert.Equal(t, "operator", info.Handle)
	assert.Equal(t, []string{"operator"}, info.Operators)
}

func TestAdmin_Rejections(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/admin/auth/challenge", challengeRequest{Handle: "intruder"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/admin/auth/info", nil, map[string]string{headerAdminToken: "admin_x_1_deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	f := newFixture(t)

	body := credentialsRequest{Handle: "alice-01", Password: "Wrong!Pass1"}
	var last int
	for i := 0; i < authRateLimit+1; i++ {
		w := f.do(t, http.MethodPost, "/users/login", body, nil)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
