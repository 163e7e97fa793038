// ABOUTME: JWT signing and verification for back-office bearer tokens
// ABOUTME: Uses HS256; signature and expiry are checked separately so refresh can tell them apart

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classifieds/backoffice/internal/store"
)

// Token errors
var (
	ErrMalformedToken      = errors.New("malformed token")
	ErrTokenExpired        = errors.New("token expired")
	ErrSecretNotConfigured = errors.New("signing secret not configured")
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Identity is what a token asserts about its bearer.
type Identity struct {
	AccountID string
	Username  string
	Role      store.Role
}

// Claims is the JWT payload. iat and exp come from the registered claims.
type Claims struct {
	AccountID string     `json:"accountId"`
	Username  string     `json:"username"`
	Role      store.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity asserted by the claims.
func (c *Claims) Identity() Identity {
	return Identity{AccountID: c.AccountID, Username: c.Username, Role: c.Role}
}

// Codec signs and verifies HS256 bearer tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec. An empty secret yields a codec whose Sign and
// Verify return ErrSecretNotConfigured. A non-positive ttl uses DefaultTokenTTL.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Configured reports whether a signing secret is set.
func (c *Codec) Configured() bool {
	return len(c.secret) > 0
}

// TTL returns the lifetime given to newly signed tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for id expiring ttl from now.
func (c *Codec) Sign(id Identity) (string, error) {
	if !c.Configured() {
		return "", ErrSecretNotConfigured
	}

	now := c.now()
	claims := Claims{
		AccountID: id.AccountID,
		Username:  id.Username,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and then the expiry. ErrTokenExpired is only
// returned for tokens whose signature is authentic; every other problem is
// ErrMalformedToken.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if !c.Configured() {
		return nil, ErrSecretNotConfigured
	}

	// Expiry is checked below against the codec clock, after the signature
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}

	if err := checkRequiredClaims(claims); err != nil {
		return nil, err
	}

	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// DecodeUnverified reads the claims without checking the signature or expiry.
// Only call it after Verify has returned ErrTokenExpired for the same token.
func (c *Codec) DecodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := checkRequiredClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkRequiredClaims(c *Claims) error {
	switch {
	case c.AccountID == "":
		return fmt.Errorf("%w: missing accountId", ErrMalformedToken)
	case !c.Role.Valid():
		return fmt.Errorf("%w: invalid role %q", ErrMalformedToken, c.Role)
	case c.ExpiresAt == nil:
		return fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}
	return nil
}
