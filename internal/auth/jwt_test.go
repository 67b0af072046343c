package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, userID, name string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestValidateRoundTrip(t *testing.T) {
	v := NewValidator("secret")
	tok := signToken(t, "secret", "u42", "Alice", time.Now().Add(time.Hour))
	claims, err := v.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u42" || claims.Name != "Alice" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	v := NewValidator("secret")
	tok := signToken(t, "other", "u42", "", time.Now().Add(time.Hour))
	if _, err := v.Validate(tok); err == nil {
		t.Error("token with wrong secret accepted")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	v := NewValidator("secret")
	tok := signToken(t, "secret", "u42", "", time.Now().Add(-time.Minute))
	if _, err := v.Validate(tok); err == nil {
		t.Error("expired token accepted")
	}
}

func TestValidateRejectsMissingUserID(t *testing.T) {
	v := NewValidator("secret")
	tok := signToken(t, "secret", "", "", time.Now().Add(time.Hour))
	if _, err := v.Validate(tok); err == nil {
		t.Error("token without user id accepted")
	}
}
