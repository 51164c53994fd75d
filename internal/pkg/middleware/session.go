package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

// SessionCookieName is the cookie the identity provider's frontend SDK sets.
const SessionCookieName = "__session"

// SessionClaims are the claims read from identity provider session tokens.
type SessionClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier validates RS256 session tokens issued by the external
// identity provider.
type SessionVerifier struct {
	key    *rsa.PublicKey
	issuer string
	leeway time.Duration
}

// NewSessionVerifier parses a PEM encoded RSA public key. An empty key yields
// a nil verifier, which treats every request as anonymous.
func NewSessionVerifier(publicKeyPEM, issuer string) (*SessionVerifier, error) {
	if strings.TrimSpace(publicKeyPEM) == "" {
		return nil, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse session public key: %w", err)
	}
	return &SessionVerifier{key: key, issuer: issuer, leeway: 5 * time.Second}, nil
}

// Verify returns the claims of a valid token.
func (v *SessionVerifier) Verify(token string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	if claims.Subject == "" {
		return nil, errors.New("session token without subject")
	}
	return claims, nil
}

// SessionAuth resolves the caller from a bearer token or the session cookie
// and stores the result as the request's user context. Requests without a
// valid token continue as anonymous.
func SessionAuth(verifier *SessionVerifier, log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		token := extractSessionToken(c)
		if token == "" || verifier == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Debug("rejected session token", zap.Error(err))
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     claims.Subject,
			SessionID:  claims.SessionID,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func extractSessionToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Cookies(SessionCookieName))
}
