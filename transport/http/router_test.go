package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odoodash/gateway/adapters/ratelimit"
	"github.com/odoodash/gateway/adapters/store"
	"github.com/odoodash/gateway/adapters/tokenizer"
	"github.com/odoodash/gateway/audit"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/service"
)

var testSecret = []byte("router-test-secret")

type fakeAuthenticator struct {
	identity *core.Identity
	err      error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, login, password string) (*core.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeSession struct {
	identity *core.Identity
	callKw   func(model, method string) (json.RawMessage, error)
	calls    int32
	cleared  int32
}

func (f *fakeSession) Ensure(ctx context.Context) (*core.Identity, error) {
	return f.identity, nil
}

func (f *fakeSession) CallKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.callKw != nil {
		return f.callKw(model, method)
	}
	return json.RawMessage(`[]`), nil
}

func (f *fakeSession) Clear() {
	atomic.AddInt32(&f.cleared, 1)
}

type routerFixture struct {
	engine        *gin.Engine
	authenticator *fakeAuthenticator
	session       *fakeSession
	challenges    *store.MemoryStore
}

func newTestRouter(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := &core.Identity{
		UID:      7,
		Username: "reporter",
		Name:     "Report Viewer",
		DB:       "prod",
	}
	authenticator := &fakeAuthenticator{identity: identity}
	session := &fakeSession{identity: identity}
	challenges := store.NewMemoryStore(0)

	tok := tokenizer.NewJWTTokenizer(testSecret, 0)
	auth := service.NewAuthService(authenticator, tok, session)
	reports := service.NewReportService(session)
	logger := audit.NewLoggerWithOutput(io.Discard, nil)

	engine := SetupRouter(Deps{
		Auth:       auth,
		Reports:    reports,
		Challenges: challenges,
		Limiter:    ratelimit.NewMemoryLimiter(),
		Audit:      logger,
		Production: true,
	})

	return &routerFixture{
		engine:        engine,
		authenticator: authenticator,
		session:       session,
		challenges:    challenges,
	}
}

func (f *routerFixture) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) login(t *testing.T) string {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/login",
		map[string]string{"login": "reporter", "password": "hunter2"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestLoginSuccess(t *testing.T) {
	f := newTestRouter(t)

	w := f.do(http.MethodPost, "/api/auth/login",
		map[string]string{"login": "reporter", "password": "hunter2"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			UID      int    `json:"uid"`
			Username string `json:"username"`
			Token    string `json:"token"`
			DB       string `json:"db"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 7, resp.Data.UID)
	assert.Equal(t, "reporter", resp.Data.Username)
	assert.Equal(t, "prod", resp.Data.DB)
	assert.NotEmpty(t, resp.Data.Token)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newTestRouter(t)
	f.authenticator.err = core.ErrInvalidCredentials

	w := f.do(http.MethodPost, "/api/auth/login",
		map[string]string{"login": "reporter", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestLoginBackendUnreachable(t *testing.T) {
	f := newTestRouter(t)
	f.authenticator.err = core.ErrConnection

	w := f.do(http.MethodPost, "/api/auth/login",
		map[string]string{"login": "reporter", "password": "hunter2"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to reach")
}

func TestLoginValidation(t *testing.T) {
	f := newTestRouter(t)

	for name, body := range map[string]map[string]string{
		"short login":      {"login": "ab", "password": "hunter2"},
		"missing password": {"login": "reporter"},
		"empty body":       {},
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/auth/login", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Validation error")
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	f := newTestRouter(t)
	f.authenticator.err = core.ErrInvalidCredentials

	body := map[string]string{"login": "reporter", "password": "wrong"}
	for i := 0; i < core.LoginPolicy.Limit; i++ {
		w := f.do(http.MethodPost, "/api/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := f.do(http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, strconv.Itoa(core.LoginPolicy.Limit), w.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("RateLimit-Reset"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMutationRequiresChallenge(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	w := f.do(http.MethodPost, "/api/reports/daily-payments",
		map[string]string{"dateFrom": "2026-01-01", "dateTo": "2026-01-31"},
		map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF")
	assert.Zero(t, atomic.LoadInt32(&f.session.calls), "gated handler must not reach the backend")
}

func TestChallengeSingleUse(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)
	f.session.callKw = func(model, method string) (json.RawMessage, error) {
		return json.RawMessage(`[{"id":1,"name":"PAY/1","date":"2026-01-02","amount":"10.50","state":"posted"}]`), nil
	}

	w := f.do(http.MethodGet, "/api/csrf-token", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	challenge := w.Header().Get(CSRFHeader)
	require.NotEmpty(t, challenge)

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		CSRFHeader:      challenge,
	}
	body := map[string]string{"dateFrom": "2026-01-01", "dateTo": "2026-01-31"}

	w = f.do(http.MethodPost, "/api/reports/daily-payments", body, headers)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The same challenge never opens a second mutation.
	w = f.do(http.MethodPost, "/api/reports/daily-payments", body, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportValidation(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)
	headers := map[string]string{"Authorization": "Bearer " + token}

	for name, body := range map[string]map[string]any{
		"bad dateFrom":  {"dateFrom": "notadate", "dateTo": "2026-01-31"},
		"inverted":      {"dateFrom": "2026-02-01", "dateTo": "2026-01-01"},
		"missing range": {"dateFrom": "2026-01-01"},
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/reports/daily-payments", body, headers)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPaymentTablePagination(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	w := f.do(http.MethodGet, "/api/csrf-token", nil, nil)
	challenge := w.Header().Get(CSRFHeader)
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		CSRFHeader:      challenge,
	}

	w = f.do(http.MethodPost, "/api/reports/payment-table", map[string]any{
		"dateFrom": "2026-01-01", "dateTo": "2026-01-31",
		"page": 0, "pageSize": 200,
	}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "pageSize")
}

func TestMissingToken(t *testing.T) {
	f := newTestRouter(t)

	w := f.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token required")
}

func TestExpiredToken(t *testing.T) {
	f := newTestRouter(t)

	claims := jwt.RegisteredClaims{
		Subject:   "7",
		Audience:  jwt.ClaimStrings{tokenizer.AudienceSession},
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/me", nil,
		map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestTamperedToken(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 0x01
	w := f.do(http.MethodGet, "/api/me", nil,
		map[string]string{"Authorization": "Bearer " + string(tampered)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}

func TestMe(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	w := f.do(http.MethodGet, "/api/me", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			UID      int    `json:"uid"`
			Username string `json:"username"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Data.UID)
	assert.Equal(t, "reporter", resp.Data.Username)
}

func TestSafeResponsesCarryChallenge(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	w := f.do(http.MethodGet, "/api/me", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(CSRFHeader))
}

func TestLogoutClearsSession(t *testing.T) {
	f := newTestRouter(t)
	token := f.login(t)

	w := f.do(http.MethodGet, "/api/csrf-token", nil, nil)
	challenge := w.Header().Get(CSRFHeader)

	w = f.do(http.MethodPost, "/api/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + token,
		CSRFHeader:      challenge,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.session.cleared))
}

func TestTestOdoo(t *testing.T) {
	f := newTestRouter(t)

	w := f.do(http.MethodPost, "/api/test-odoo", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ERP connection ok")
}

func TestHealth(t *testing.T) {
	f := newTestRouter(t)

	w := f.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
