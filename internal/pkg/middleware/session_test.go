package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

const testIssuer = "https://clerk.insta-growth.test"

func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub string) SessionClaims {
	return SessionClaims{
		SessionID: "sess_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
}

func newTestApp(t *testing.T, verifier *SessionVerifier) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(SessionAuth(verifier, nil))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(usercontext.GetUserID(c))
	})
	app.Get("/private", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.SendString("ok " + usercontext.GetUserID(c))
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSessionAuth_BearerAndCookie(t *testing.T) {
	key, pub := newTestKey(t)
	verifier, err := NewSessionVerifier(pub, testIssuer)
	require.NoError(t, err)
	app := newTestApp(t, verifier)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, validClaims("user_abc")))
	status, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok user_abc", body)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signToken(t, key, validClaims("user_cookie"))})
	status, body = doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok user_cookie", body)
}

func TestSessionAuth_RejectsBadTokens(t *testing.T) {
	key, pub := newTestKey(t)
	otherKey, _ := newTestKey(t)
	verifier, err := NewSessionVerifier(pub, testIssuer)
	require.NoError(t, err)
	app := newTestApp(t, verifier)

	expired := validClaims("user_abc")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := validClaims("user_abc")
	wrongIssuer.Issuer = "https://evil.test"
	noSubject := validClaims("")
	noExpiry := validClaims("user_abc")
	noExpiry.ExpiresAt = nil

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user_abc")).SignedString([]byte(pub))
	require.NoError(t, err)

	tokens := map[string]string{
		"expired":      signToken(t, key, expired),
		"wrong issuer": signToken(t, key, wrongIssuer),
		"no subject":   signToken(t, key, noSubject),
		"no expiry":    signToken(t, key, noExpiry),
		"wrong key":    signToken(t, otherKey, validClaims("user_abc")),
		"hs256":        hs256,
		"garbage":      "not.a.jwt",
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			status, body := doRequest(t, app, req)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.JSONEq(t, `{"error":"unauthorized","message":"login required"}`, body)
		})
	}
}

func TestSessionAuth_AnonymousWithoutToken(t *testing.T) {
	_, pub := newTestKey(t)
	verifier, err := NewSessionVerifier(pub, "")
	require.NoError(t, err)
	app := newTestApp(t, verifier)

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)

	status, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSessionAuth_NoVerifierConfigured(t *testing.T) {
	key, _ := newTestKey(t)
	verifier, err := NewSessionVerifier("", "")
	require.NoError(t, err)
	assert.Nil(t, verifier)

	app := newTestApp(t, verifier)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, validClaims("user_abc")))
	status, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestNewSessionVerifier_InvalidPEM(t *testing.T) {
	_, err := NewSessionVerifier("-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----", "")
	assert.Error(t, err)
}
