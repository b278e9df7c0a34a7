package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grafeodb/gwp/wire"
)

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, &key.PublicKey
}

func sign(t *testing.T, key *rsa.PrivateKey, expiry time.Time) string {
	t.Helper()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiry),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func TestValidateAcceptsValidToken(t *testing.T) {
	priv, pub := generateKeyPair(t)
	v := NewJWTValidator(pub)
	token := sign(t, priv, time.Now().Add(time.Hour))

	err := v.Validate(context.Background(), &wire.AuthCredentials{Scheme: "bearer", Token: token})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	priv, pub := generateKeyPair(t)
	v := NewJWTValidator(pub)
	token := sign(t, priv, time.Now().Add(-time.Hour))

	if err := v.Validate(context.Background(), &wire.AuthCredentials{Scheme: "bearer", Token: token}); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	priv, _ := generateKeyPair(t)
	_, otherPub := generateKeyPair(t)
	v := NewJWTValidator(otherPub)
	token := sign(t, priv, time.Now().Add(time.Hour))

	if err := v.Validate(context.Background(), &wire.AuthCredentials{Scheme: "bearer", Token: token}); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	_, pub := generateKeyPair(t)
	v := NewJWTValidator(pub)
	if err := v.Validate(context.Background(), nil); err == nil {
		t.Fatal("expected nil credentials to be rejected")
	}
}

func TestValidateRejectsUnknownScheme(t *testing.T) {
	priv, pub := generateKeyPair(t)
	v := NewJWTValidator(pub)
	token := sign(t, priv, time.Now().Add(time.Hour))
	if err := v.Validate(context.Background(), &wire.AuthCredentials{Scheme: "basic", Token: token}); err == nil {
		t.Fatal("expected unsupported scheme to be rejected")
	}
}
