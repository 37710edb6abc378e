package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// unsignedToken builds a JWT-shaped token with the given claims and an empty
// signature, enough for claim extraction without a verification key.
func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}

	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "."
}

func TestNewDecodesClaimsFromToken(t *testing.T) {
	token := unsignedToken(t, map[string]any{
		"sub":  "user-7",
		"name": "Dana",
	})

	s, err := New(token, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.UserID() != "user-7" {
		t.Fatalf("expected user id from sub claim, got %q", s.UserID())
	}
	if s.UserName() != "Dana" {
		t.Fatalf("expected user name from name claim, got %q", s.UserName())
	}
	if s.State() != StateInitialized {
		t.Fatalf("expected initialized state, got %q", s.State())
	}
}

func TestNewExplicitOptionsWinOverClaims(t *testing.T) {
	token := unsignedToken(t, map[string]any{"sub": "claim-user"})

	s, err := New(token, Options{UserID: "opt-user", UserName: "Opt"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.UserID() != "opt-user" {
		t.Fatalf("expected option user id to win, got %q", s.UserID())
	}
}

func TestNewRequiresUserID(t *testing.T) {
	if _, err := New("opaque-token-without-claims", Options{}); err == nil {
		t.Fatalf("expected error when user id is missing everywhere")
	}
}

func TestLifecycleGatesAuthorization(t *testing.T) {
	s, err := New("opaque-token", Options{UserID: "user-1"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Authorization(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive before Activate, got %v", err)
	}

	if err := s.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	auth, err := s.Authorization()
	if err != nil {
		t.Fatalf("Authorization failed: %v", err)
	}
	if auth != "Bearer opaque-token" {
		t.Fatalf("unexpected authorization value %q", auth)
	}

	s.Teardown()
	s.Teardown() // second teardown is a no-op
	if s.State() != StateTornDown {
		t.Fatalf("expected torn down state, got %q", s.State())
	}
	if _, err := s.Authorization(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after teardown, got %v", err)
	}
	if err := s.Activate(); err == nil {
		t.Fatalf("expected activation after teardown to fail")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	token := unsignedToken(t, map[string]any{
		"sub": "user-9",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	s, err := New(token, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	if _, err := s.Authorization(); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}
