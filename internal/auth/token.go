// Package auth guards console sessions and saved snippets.
//
// A console session is anonymous: whoever created it holds a signed token
// naming it. The token is an HS256 JWT whose subject is the session ID,
// so any request can be checked without a lookup:
//
//	HEADER.PAYLOAD.SIGNATURE
//	payload → {"iss":"webconsole","sub":"<session id>","exp":...}
//
// Snippets are protected by an edit key instead (see KeyService).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into and required from every session token.
const Issuer = "webconsole"

// DefaultTokenTTL is the token lifetime when none is configured.
const DefaultTokenTTL = 30 * time.Minute

var (
	// ErrTokenExpired is returned by Validate for a token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrInvalidToken covers every other validation failure.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// TokenService issues and validates session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; a non-positive ttl selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the given session.
func (s *TokenService) Issue(sessionID string) (string, error) {
	return s.IssueWithDuration(sessionID, s.ttl)
}

// IssueWithDuration signs a token that expires after d. Tests use a
// negative d to get an already expired token.
func (s *TokenService) IssueWithDuration(sessionID string, d time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry and returns the
// session ID the token was issued for.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		// Pinning the method rejects "none" and RS/HS confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}
