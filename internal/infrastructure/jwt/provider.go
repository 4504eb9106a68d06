package jwtinfra

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. Verification tokens carry only the
// email; session tokens carry the user id as well.
type Claims struct {
	Email  string `json:"email"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a server-held symmetric key.
// The key and expiry are fixed at construction; there is no ambient lookup.
type Provider struct {
	key    []byte
	expiry time.Duration
}

func NewProvider(key string, expiry time.Duration) *Provider {
	return &Provider{key: []byte(key), expiry: expiry}
}

// IssueSession creates a bearer token proving a logged-in identity.
func (p *Provider) IssueSession(email, userID string) (string, error) {
	return p.sign(Claims{Email: email, UserID: userID})
}

// IssueVerification creates a token proving control of a registration
// request; it carries only the email claim.
func (p *Provider) IssueVerification(email string) (string, error) {
	return p.sign(Claims{Email: email})
}

func (p *Provider) sign(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.key)
}

// Verify checks signature and expiry. Callers treat any failure as
// "not authorized"; malformed, expired and bad-signature tokens are not
// distinguished.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
