package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/golang-jwt/jwt/v5"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	token, user, err := s.Register(ctx, "alice", "Alice@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Error("Expected a token")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected lower-cased email, got %s", user.Email)
	}
	if user.PasswordHash == "secret1" || !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("Expected a bcrypt hash, got %s", user.PasswordHash)
	}

	id, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id != user.Id {
		t.Errorf("Expected user id %s, got %s", user.Id, id)
	}

	_, loggedIn, err := s.Login(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.Id != user.Id {
		t.Errorf("Expected same user, got %s", loggedIn.Id)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	if _, _, err := s.Register(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, err := s.Register(ctx, "alice2", "ALICE@example.com", "secret2")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := setupService(t)
	tests := []struct {
		name, email, password string
	}{
		{"", "a@b.c", "secret1"},
		{"alice", "not-an-email", "secret1"},
		{"alice", "a@b.c", "short"},
	}
	for _, tt := range tests {
		_, _, err := s.Register(context.Background(), tt.name, tt.email, tt.password)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Register(%q, %q, %q): expected validation error, got %v", tt.name, tt.email, tt.password, err)
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	s.Register(ctx, "alice", "alice@example.com", "secret1")

	_, _, err := s.Login(ctx, "alice@example.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	_, _, err = s.Login(ctx, "nobody@example.com", "secret1")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	s := setupService(t)
	_, user, err := s.Register(context.Background(), "alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	other := New(nil, "other-secret", time.Hour)
	forged, _ := other.Issue(user.Id)

	expiredIssuer := New(nil, "test-secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue(user.Id)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": user.Id.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"empty":        "",
		"wrong secret": forged,
		"expired":      expired,
		"alg none":     none,
	}
	for name, token := range tests {
		if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestRandomSecretWhenUnset(t *testing.T) {
	a := New(nil, "", 0)
	b := New(nil, "", 0)
	if string(a.secret) == string(b.secret) {
		t.Error("Expected distinct random secrets")
	}
	if a.ttl != DefaultTokenTtl {
		t.Errorf("Expected default ttl, got %v", a.ttl)
	}
}
