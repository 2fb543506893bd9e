package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	tok, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ac, err := tokens.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ac.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", ac.UserID)
	}
	if ac.ExpiresAt == 0 {
		t.Error("expected expiry to be set")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, _ := NewTokens([]byte("another-secret-another-secret"), time.Hour).Issue("user-1")

	_, err := NewTokens(testSecret, time.Hour).Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.now = time.Now
	if _, err := tokens.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbageAndEmpty(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := tokens.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewTokens(testSecret, time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokens(testSecret, time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
