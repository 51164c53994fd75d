package router

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/InstaGrowth/app/controllers"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/accounts"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/billing"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/drafting"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/middleware"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usage"
)

type testServer struct {
	app *fiber.App
	key *rsa.PrivateKey
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	verifier, err := middleware.NewSessionVerifier(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), "")
	require.NoError(t, err)

	billingSvc := billing.NewServiceFromDB(nil, nil, billing.CheckoutConfig{}, nil)
	app := fiber.New()
	InstallRouter(app, Dependencies{
		Billing:  controllers.NewBillingController(billingSvc, "whsec_router", nil),
		Comments: controllers.NewCommentController(drafting.NewService(nil, nil), usage.NewMeter(nil, 0), billingSvc, nil),
		Accounts: controllers.NewAccountController(accounts.NewStore(nil), nil),
		Sessions: verifier,
		Limits:   config.LimitsConfig{RateLimitMax: rateLimit, RateLimitWindow: time.Minute},
	})
	return &testServer{app: app, key: key}
}

func (s *testServer) token(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(s.key)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestServer(t, 10)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "go_goroutines")
}

func TestRouter_WebhookNeedsNoSession(t *testing.T) {
	s := newTestServer(t, 1)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
		resp, body := s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "invalid_signature")
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	}
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	s := newTestServer(t, 10)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/subscription", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "unauthorized")

	req := httptest.NewRequest(http.MethodGet, "/api/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "user_1"))
	resp, body = s.do(t, req)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "store_unavailable")

	req = httptest.NewRequest(http.MethodPost, "/api/generate-comment", strings.NewReader(`{"postCaption":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token(t, "user_1"))
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UnknownAPIPathIsNotFound(t *testing.T) {
	s := newTestServer(t, 10)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "not_found")

	req := httptest.NewRequest(http.MethodPost, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "user_1"))
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	token := s.token(t, "user_1")

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := s.do(t, req)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// Another user has their own budget.
	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "user_2"))
	resp, _ := s.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHttpRouter_Docs(t *testing.T) {
	spec := filepath.Join(t.TempDir(), "openapi.yml")
	require.NoError(t, os.WriteFile(spec, []byte("openapi: 3.0.3\ninfo:\n  title: test\n  version: '1'\npaths: {}\n"), 0o600))

	app := fiber.New()
	NewHttpRouter(spec).InstallRouter(app)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/api/v1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A missing document disables the UI instead of failing startup.
	app = fiber.New()
	NewHttpRouter(filepath.Join(t.TempDir(), "missing.yml")).InstallRouter(app)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/docs/api/v1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
