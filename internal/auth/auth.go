// Package auth validates handshake credentials against a configured RS256
// JWT public key. A nil Validator is treated by the session service as "no
// authentication configured" and every handshake is accepted.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grafeodb/gwp/wire"
)

// Validator validates handshake credentials, returning an error to reject
// the connection.
type Validator interface {
	Validate(ctx context.Context, creds *wire.AuthCredentials) error
}

// JWTValidator validates a bearer token's RS256 signature against pubKey.
type JWTValidator struct {
	pubKey *rsa.PublicKey
}

// NewJWTValidator creates a JWTValidator.
func NewJWTValidator(pubKey *rsa.PublicKey) *JWTValidator {
	return &JWTValidator{pubKey: pubKey}
}

// Claims extends jwt.RegisteredClaims; handshake tokens carry no
// application-specific fields beyond the registered set.
type Claims struct {
	jwt.RegisteredClaims
}

// Validate implements Validator. It accepts only the "bearer" scheme and
// requires an RS256-signed token verifiable against pubKey.
func (v *JWTValidator) Validate(ctx context.Context, creds *wire.AuthCredentials) error {
	if creds == nil {
		return errors.New("credentials required")
	}
	if creds.Scheme != "bearer" && creds.Scheme != "Bearer" {
		return fmt.Errorf("unsupported auth scheme %q", creds.Scheme)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(creds.Token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.pubKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		return errors.New("invalid or expired token")
	}
	return nil
}
