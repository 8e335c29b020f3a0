package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired indicates the access token's embedded expiry has passed.
	ErrTokenExpired = errors.New("security: access token expired")
	// ErrTokenInvalid indicates a malformed token, a signature mismatch, or a
	// wrong signing algorithm.
	ErrTokenInvalid = errors.New("security: access token invalid")
)

// AccessClaims is the closed payload carried by every access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the owning principal of the claims.
func (c AccessClaims) UserID() string {
	return c.Subject
}

// ClaimsCodec signs and verifies access-token payloads. It is pure and
// stateless; the signing key, issuer, and default TTL are injected at
// construction so tests can supply deterministic values.
type ClaimsCodec struct {
	signingKey []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

const defaultAccessTokenTTL = 15 * time.Minute

// NewClaimsCodec constructs a codec for the supplied HMAC signing key.
func NewClaimsCodec(signingKey []byte, issuer string, defaultTTL time.Duration) (*ClaimsCodec, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("security: signing key is required")
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultAccessTokenTTL
	}

	return &ClaimsCodec{
		signingKey: signingKey,
		issuer:     issuer,
		defaultTTL: defaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the codec clock, primarily for tests.
func (c *ClaimsCodec) WithClock(now func() time.Time) *ClaimsCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Sign produces a signed access token for the subject with the codec's
// default TTL embedded as the expiry.
func (c *ClaimsCodec) Sign(subject, email, role string) (string, error) {
	return c.SignWithTTL(subject, email, role, c.defaultTTL)
}

// SignWithTTL produces a signed access token expiring ttl from now.
func (c *ClaimsCodec) SignWithTTL(subject, email, role string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("security: subject is required")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// Verify checks the token signature and embedded expiry and returns its
// claims. Malformed input yields ErrTokenInvalid, never a panic.
func (c *ClaimsCodec) Verify(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// DecodeUnsafe extracts claims without verifying signature or expiry. It
// exists for diagnostics on already-expired tokens and must never feed an
// authorization decision. Returns nil for structurally invalid input.
func (c *ClaimsCodec) DecodeUnsafe(token string) *AccessClaims {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	return claims
}
