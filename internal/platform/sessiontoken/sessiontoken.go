// Package sessiontoken signs and verifies the lab session cookie value.
//
// Tokens are HS256 JWTs whose jti is the session id. They carry no other
// state; the server keeps the session itself.
package sessiontoken

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "smartlab"

// MinKeyBytes is the shortest accepted signing key.
const MinKeyBytes = 32

// ErrInvalid is returned for any token that fails verification.
var ErrInvalid = errors.New("invalid session token")

// Signer issues and verifies session tokens.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner builds a signer. An empty key generates a random one, which
// invalidates sessions on restart.
func NewSigner(key string, ttl time.Duration, now func() time.Time) (*Signer, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	keyBytes := []byte(strings.TrimSpace(key))
	if len(keyBytes) == 0 {
		keyBytes = make([]byte, MinKeyBytes)
		if _, err := rand.Read(keyBytes); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	if len(keyBytes) < MinKeyBytes {
		return nil, fmt.Errorf("session key must be at least %d bytes", MinKeyBytes)
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{key: keyBytes, ttl: ttl, now: now}, nil
}

// TTL returns the token lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for sessionID.
func (s *Signer) Issue(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its session id.
func (s *Signer) Parse(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalid
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ID == "" {
		return "", ErrInvalid
	}
	return claims.ID, nil
}
