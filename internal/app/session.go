package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	sessionIssuer   = "chatfic"
	sessionAudience = "chatfic-api"

	defaultSessionTTL = 30 * 24 * time.Hour
)

// ErrInvalidSession indicates a missing, expired, or tampered session token.
var ErrInvalidSession = errors.New("invalid session")

// SessionSigner issues and validates HS256 session tokens for the local
// profile. A single symmetric secret is enough here: the token never
// crosses a service boundary.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner builds a signer. An empty secret disables sessions.
func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the profile ID.
func (s *SessionSigner) Issue(profileID string) (string, error) {
	if s == nil {
		return "", nil
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Audience:  jwt.ClaimStrings{sessionAudience},
		Subject:   profileID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Verify returns the profile ID carried by a valid token.
func (s *SessionSigner) Verify(tokenString string) (string, error) {
	if s == nil {
		return "", ErrInvalidSession
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}
