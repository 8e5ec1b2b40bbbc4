package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/internal/testutil"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, challenges ports.ChallengeStore) http.Handler {
	t.Helper()
	clock := testutil.NewClock()
	logger, _ := test.NewNullLogger()
	if challenges == nil {
		challenges = store.NewMemoryChallengeStore(clock)
	}

	auth := service.NewAuthService(
		service.NewChallengeService(challenges, verifier.NewEthVerifier(), clock, logger, service.ChallengeConfig{}),
		service.NewStoreSessionManager(store.NewMemorySessionStore(clock), clock, time.Hour),
		events.NopPublisher{},
		logger,
	)
	return transport.SetupRouter(auth, transport.CookieConfig{Secure: true}, logger)
}

func do(t *testing.T, h http.Handler, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func challenge(t *testing.T, h http.Handler, identity string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/challenge", map[string]string{"identity": identity})
	require.Equal(t, http.StatusOK, w.Code)
	message, ok := decode(t, w)["message"].(string)
	require.True(t, ok)
	return message
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == transport.DefaultCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func TestRouter_LoginFlow(t *testing.T) {
	h := newRouter(t, nil)
	wallet := testutil.NewWallet(t)

	message := challenge(t, h, wallet.Address)
	assert.True(t, strings.HasPrefix(message, service.DefaultMessagePrefix))

	w := do(t, h, http.MethodPost, "/login", map[string]any{
		"identity":  wallet.Address,
		"signature": wallet.SignHex(t, message),
		"profile":   map[string]any{"email": "alice@example.com"},
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	w = do(t, h, http.MethodGet, "/user", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, strings.ToLower(wallet.Address), user["identity"])
	assert.Equal(t, "alice@example.com", user["profile"].(map[string]any)["email"])

	w = do(t, h, http.MethodGet, "/user", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+cookie.Value)
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodDelete, "/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusNoContent, w.Code)
	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	w = do(t, h, http.MethodGet, "/user", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LoginFailuresLookAlike(t *testing.T) {
	h := newRouter(t, nil)
	wallet := testutil.NewWallet(t)
	attacker := testutil.NewWallet(t)

	// nothing pending
	noChallenge := do(t, h, http.MethodPost, "/login", map[string]any{
		"identity":  wallet.Address,
		"signature": wallet.SignHex(t, "hello"),
	})

	// signed by someone else
	message := challenge(t, h, wallet.Address)
	mismatch := do(t, h, http.MethodPost, "/login", map[string]any{
		"identity":  wallet.Address,
		"signature": attacker.SignHex(t, message),
	})

	// replay after the failed attempt consumed the challenge
	replay := do(t, h, http.MethodPost, "/login", map[string]any{
		"identity":  wallet.Address,
		"signature": wallet.SignHex(t, message),
	})

	for name, w := range map[string]*httptest.ResponseRecorder{
		"NoChallenge": noChallenge,
		"Mismatch":    mismatch,
		"Replay":      replay,
	} {
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.JSONEq(t, `{"error":"authentication failed"}`, w.Body.String(), name)
		assert.Empty(t, w.Result().Cookies(), name)
	}
}

func TestRouter_BadRequests(t *testing.T) {
	h := newRouter(t, nil)
	wallet := testutil.NewWallet(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "ChallengeWithoutIdentity", method: http.MethodPost, path: "/challenge", body: map[string]string{}},
		{name: "ChallengeBlankIdentity", method: http.MethodPost, path: "/challenge", body: map[string]string{"identity": "   "}},
		{name: "LoginWithoutSignature", method: http.MethodPost, path: "/login", body: map[string]string{"identity": wallet.Address}},
		{name: "LoginSignatureNotHex", method: http.MethodPost, path: "/login", body: map[string]string{"identity": wallet.Address, "signature": "not-hex"}},
		{name: "LoginSignatureTooShort", method: http.MethodPost, path: "/login", body: map[string]string{"identity": wallet.Address, "signature": "0x0102"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge(t, h, wallet.Address)
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestRouter_Unauthenticated(t *testing.T) {
	h := newRouter(t, nil)

	for name, mutate := range map[string]func(*http.Request){
		"NoCredential":  func(*http.Request) {},
		"UnknownCookie": withCookie(&http.Cookie{Name: transport.DefaultCookieName, Value: "deadbeef"}),
		"UnknownBearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer deadbeef") },
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/user", nil, mutate)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	// logging out without a session is fine
	w := do(t, h, http.MethodDelete, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_StorageUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	h := newRouter(t, store.NewRedisChallengeStore(client))
	mr.Close()

	w := do(t, h, http.MethodPost, "/challenge", map[string]string{"identity": "0xabc"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	wallet := testutil.NewWallet(t)
	w = do(t, h, http.MethodPost, "/login", map[string]any{
		"identity":  wallet.Address,
		"signature": wallet.SignHex(t, "hello"),
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRouter_Probes(t *testing.T) {
	h := newRouter(t, nil)

	w := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// make sure at least one walletauth series exists
	challenge(t, h, "0xabc")
	w = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "walletauth_challenges_issued_total")
}

func TestSessionFromContext_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	assert.Nil(t, transport.SessionFromContext(c))
}
