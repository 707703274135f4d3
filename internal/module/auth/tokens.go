package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/simp-lee/jwt"
)

const (
	issuer        = "mailsync"
	accessTokenT  = "access"
	refreshTokenT = "refresh"
)

var errWrongTokenType = errors.New("wrong token type")

// TokenIssuer signs and verifies HS256 access and refresh tokens. The token
// type travels as the single role of the token.
type TokenIssuer struct {
	svc           jwt.Service
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

type issuerConfig struct {
	leeway time.Duration
	now    func() time.Time
}

// IssuerOption customizes a TokenIssuer.
type IssuerOption func(*issuerConfig)

// WithLeeway accepts tokens up to d past their expiry, covering requests that
// were already in flight when a client refreshed.
func WithLeeway(d time.Duration) IssuerOption {
	return func(c *issuerConfig) { c.leeway = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(c *issuerConfig) { c.now = now }
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// NewTokenIssuer creates a TokenIssuer. secret must be at least 32
// characters. Close releases it.
func NewTokenIssuer(secret string, accessExpiry, refreshExpiry time.Duration, opts ...IssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if accessExpiry <= 0 || refreshExpiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}
	cfg := issuerConfig{leeway: 30 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	lifetime := max(accessExpiry, refreshExpiry)
	svc, err := jwt.New(secret,
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(cfg.leeway),
		jwt.WithMaxTokenLifetime(lifetime),
		jwt.WithUserRevocationTTL(max(lifetime, jwt.DefaultUserRevocationTTL)),
		jwt.WithClock(clockFunc(cfg.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	return &TokenIssuer{
		svc:           svc,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           cfg.now,
	}, nil
}

// IssueAccess signs a short-lived access token for accountID.
func (t *TokenIssuer) IssueAccess(accountID string) (string, time.Time, error) {
	return t.sign(accountID, accessTokenT, t.accessExpiry)
}

// IssueRefresh signs a long-lived refresh token for accountID.
func (t *TokenIssuer) IssueRefresh(accountID string) (string, time.Time, error) {
	return t.sign(accountID, refreshTokenT, t.refreshExpiry)
}

// VerifyAccess returns the account of a valid access token.
func (t *TokenIssuer) VerifyAccess(token string) (string, error) {
	return t.verify(token, accessTokenT)
}

// VerifyRefresh returns the account of a valid refresh token.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	return t.verify(token, refreshTokenT)
}

// Close stops the revocation cleanup of the token service.
func (t *TokenIssuer) Close() {
	t.svc.Close()
}

func (t *TokenIssuer) sign(accountID, typ string, ttl time.Duration) (string, time.Time, error) {
	exp := t.now().Add(ttl)
	signed, err := t.svc.GenerateToken(accountID, []string{typ}, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) verify(token, typ string) (string, error) {
	parsed, err := t.svc.ValidateToken(token)
	if err != nil {
		return "", err
	}
	if !slices.Equal(parsed.Roles, []string{typ}) {
		return "", errWrongTokenType
	}
	if parsed.UserID == "" {
		return "", errors.New("token has no subject")
	}
	return parsed.UserID, nil
}
