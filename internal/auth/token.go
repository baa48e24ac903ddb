package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/styleshop/storefront/internal/models"
)

const issuer = "styleshop-storefront"

var errNoSecret = errors.New("no token signing secret configured")

// Claims is the JWT payload issued after login or registration.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// User rebuilds the authenticated user from the claims.
func (c *Claims) User() *models.User {
	return &models.User{ID: c.Subject, Email: c.Email, Name: c.Name, IsAdmin: c.IsAdmin}
}

// TokenIssuer signs and validates HS256 bearer tokens and keeps a
// revocation list for logged out tokens until they expire.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenIssuer returns an issuer signing with secret. Tokens expire after
// expiry.
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:  []byte(secret),
		expiry:  expiry,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue creates a token for u and returns it with its expiry time.
func (t *TokenIssuer) Issue(u *models.User) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errNoSecret
	}
	now := t.now()
	expiresAt := now.Add(t.expiry)

	claims := Claims{
		Email:   u.Email,
		Name:    u.Name,
		IsAdmin: u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates the token signature, expiry and revocation state.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, errNoSecret)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke invalidates a previously issued token. Expired entries are swept
// on each call.
func (t *TokenIssuer) Revoke(claims *Claims) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, id)
		}
	}
	if claims.ExpiresAt != nil {
		t.revoked[claims.ID] = claims.ExpiresAt.Time
	}
}
