package security

import (
	"errors"
	"testing"
	"time"
)

func TestUserTokenRoundTrip(t *testing.T) {
	t.Parallel()

	secret := "super-secret"

	tok, err := GenerateUserToken(secret, "m-1", "ada@example.com", "student", "Ada Lovelace", time.Hour)
	if err != nil {
		t.Fatalf("GenerateUserToken error: %v", err)
	}

	claims, err := ParseUserToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseUserToken error: %v", err)
	}
	if claims.UserID != "m-1" || claims.Email != "ada@example.com" || claims.Role != "student" || claims.Name != "Ada Lovelace" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseUserToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateUserToken("secret", "m-1", "a@b.c", "student", "A", -time.Second)
	if err != nil {
		t.Fatalf("GenerateUserToken error: %v", err)
	}

	_, err = ParseUserToken(tok, "secret")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseUserToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateUserToken("right-secret", "m-1", "a@b.c", "student", "A", time.Hour)
	if err != nil {
		t.Fatalf("GenerateUserToken error: %v", err)
	}

	if _, err := ParseUserToken(tok, "wrong-secret"); err == nil {
		t.Fatalf("expected error for wrong secret, got nil")
	}
}

func TestParseUserToken_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseUserToken("not.a.jwt", "k"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAdminToken("secret", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	claims, err := ParseAdminToken(tok, "secret")
	if err != nil {
		t.Fatalf("ParseAdminToken error: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
	if claims.Timestamp == 0 {
		t.Fatalf("timestamp not set")
	}
}

// The two token kinds share a secret but must never be interchangeable.
func TestTokenKindsNotInterchangeable(t *testing.T) {
	t.Parallel()

	secret := "shared-secret"

	adminTok, err := GenerateAdminToken(secret, "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}
	if _, err := ParseUserToken(adminTok, secret); err == nil {
		t.Fatalf("user verifier accepted an admin token")
	}

	userTok, err := GenerateUserToken(secret, "m-1", "a@b.c", "admin", "A", time.Hour)
	if err != nil {
		t.Fatalf("GenerateUserToken error: %v", err)
	}
	if _, err := ParseAdminToken(userTok, secret); err == nil {
		t.Fatalf("admin verifier accepted a user token")
	}
}
