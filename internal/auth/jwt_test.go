package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret-key-at-least-32-bytes", time.Hour)

	token, err := m.Generate("treasurer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Username != "treasurer" {
		t.Errorf("username = %q, want treasurer", claims.Username)
	}
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret-key-at-least-32-bytes", -time.Minute)

	token, err := m.Generate("treasurer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret-key-at-least-32-bytes", time.Hour)
	other := NewJWTManager("another-secret-key-also-32-bytes!", time.Hour)

	token, err := m.Generate("treasurer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret-key-at-least-32-bytes", time.Hour)
	if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifier_PlainPassword(t *testing.T) {
	v := NewVerifier("admin", "", "secret123")

	if err := v.Verify("admin", "secret123"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if err := v.Verify("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if err := v.Verify("other", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong username: got %v", err)
	}
}

func TestVerifier_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	v := NewVerifier("admin", string(hash), "")

	if err := v.Verify("admin", "secret123"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if err := v.Verify("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
}

func TestVerifier_HashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	v := NewVerifier("admin", string(hash), "plain-pass")

	if err := v.Verify("admin", "plain-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("plain password should be ignored when hash is set: got %v", err)
	}
	if err := v.Verify("admin", "hashed-pass"); err != nil {
		t.Errorf("hashed password rejected: %v", err)
	}
}
