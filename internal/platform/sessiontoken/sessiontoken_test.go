package sessiontoken

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s, err := NewSigner(testKey, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := s.Issue("session-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := s.Parse(token)
	if err != nil || id != "session-1" {
		t.Fatalf("Parse = %q, %v", id, err)
	}
}

func TestParseExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s, _ := NewSigner(testKey, time.Hour, func() time.Time { return now })
	token, _ := s.Issue("session-1")

	now = now.Add(2 * time.Hour)
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Parse expired error = %v", err)
	}
}

func TestParseRejectsForeignKeyAndAlgorithm(t *testing.T) {
	s, _ := NewSigner(testKey, time.Hour, nil)
	other, _ := NewSigner(strings.Repeat("x", MinKeyBytes), time.Hour, nil)
	token, _ := other.Issue("session-1")
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("foreign key error = %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.Parse(unsigned); !errors.Is(err, ErrInvalid) {
		t.Fatalf("none alg error = %v", err)
	}

	for _, bad := range []string{"", "not-a-token"} {
		if _, err := s.Parse(bad); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Parse(%q) error = %v", bad, err)
		}
	}
}

func TestNewSignerValidation(t *testing.T) {
	if _, err := NewSigner("short", time.Hour, nil); err == nil {
		t.Fatal("expected short key error")
	}
	if _, err := NewSigner(testKey, 0, nil); err == nil {
		t.Fatal("expected ttl error")
	}
	random, err := NewSigner("", time.Hour, nil)
	if err != nil {
		t.Fatalf("random key: %v", err)
	}
	if _, err := random.Issue(""); err == nil {
		t.Fatal("expected empty session id error")
	}
}
