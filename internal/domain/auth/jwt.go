// Package auth validates bearer tokens. Token issuance belongs to an external
// identity provider; Issue exists for cmd/seed and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "spareflow/internal/core/context"
)

// Config holds token settings.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// DefaultConfig returns HS256 settings with a one hour TTL.
func DefaultConfig(secret, issuer string) Config {
	return Config{
		Secret:   secret,
		Issuer:   issuer,
		TokenTTL: time.Hour,
	}
}

// Claims are the token claims. Subject is the technician or approver id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// TokenService signs and validates tokens.
type TokenService struct {
	config Config
	now    func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(config Config) *TokenService {
	return &TokenService{config: config, now: time.Now}
}

// Issue signs a token for subject.
func (s *TokenService) Issue(subject string, roles ...string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := s.now()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: roles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, expiry and issuer and returns the principal.
func (s *TokenService) ValidateToken(tokenString string) (*appctx.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &appctx.Principal{Subject: claims.Subject, Roles: claims.Roles}, nil
}
