package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xtrntr/p2pexchange/internal/models"
)

const testSecret = "test-secret"

func TestCredentials(t *testing.T) {
	longToken := strings.Repeat("aB3xQ9mK2pL7vN4wR8tY1zC6hJ5gF0dS", 8)
	encoded, err := HashCredential(longToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		encoded  string
		expectOK bool
	}{
		{name: "Match", token: longToken, encoded: encoded, expectOK: true},
		{name: "WrongToken", token: longToken + "x", encoded: encoded, expectOK: false},
		{name: "EmptyToken", token: "", encoded: encoded, expectOK: false},
		{name: "MissingSeparator", token: longToken, encoded: "garbage", expectOK: false},
		{name: "BadSalt", token: longToken, encoded: "!!!:" + strings.SplitN(encoded, ":", 2)[1], expectOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyCredential(tt.token, tt.encoded); got != tt.expectOK {
				t.Errorf("expected %v, got %v", tt.expectOK, got)
			}
		})
	}
}

func TestHashCredential_Salted(t *testing.T) {
	a, err := HashCredential("same-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := HashCredential("same-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Errorf("expected distinct encodings for the same token")
	}
	if strings.Contains(a, "same-token") {
		t.Errorf("raw token leaked into encoding")
	}
}

func TestSessionService_Verify(t *testing.T) {
	s := NewSessionService(testSecret, time.Hour, NewMemoryRevocations())
	account := &models.Account{ID: 7, Username: "SwiftFalcon217"}

	token, err := s.Issue(account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "7",
		"username": "SwiftFalcon217",
		"jti":      "expired",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenStr, _ := expiredToken.SignedString([]byte(testSecret))
	invalidToken, _ := expiredToken.SignedString([]byte("wrong-key"))

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "SwiftFalcon217",
		"jti":      "nosub",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	noSubjectStr, _ := noSubject.SignedString([]byte(testSecret))

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":      "7",
		"username": "SwiftFalcon217",
		"jti":      "none",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	noneAlgStr, _ := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name            string
		token           string
		expectAccountID int64
		expectError     bool
	}{
		{name: "Success", token: token, expectAccountID: 7},
		{name: "ExpiredToken", token: expiredTokenStr, expectError: true},
		{name: "InvalidSignature", token: invalidToken, expectError: true},
		{name: "MissingSubject", token: noSubjectStr, expectError: true},
		{name: "NoneAlgorithm", token: noneAlgStr, expectError: true},
		{name: "EmptyToken", token: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester, err := s.Verify(context.Background(), tt.token)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if requester.AccountID != tt.expectAccountID {
				t.Errorf("expected account ID %d, got %d", tt.expectAccountID, requester.AccountID)
			}
			if requester.Username != account.Username {
				t.Errorf("expected username %q, got %q", account.Username, requester.Username)
			}
			if requester.SessionID == "" {
				t.Errorf("expected a session id")
			}
		})
	}
}

func TestSessionService_Revoke(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService(testSecret, time.Hour, NewMemoryRevocations())

	token, err := s.Issue(&models.Account{ID: 1, Username: "CalmOtter42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, err := s.Issue(&models.Account{ID: 1, Username: "CalmOtter42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requester, err := s.Verify(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Revoke(ctx, requester); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Verify(ctx, token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
	// other sessions of the same account are unaffected
	if _, err := s.Verify(ctx, other); err != nil {
		t.Errorf("unexpected error for second session: %v", err)
	}
}

func TestMemoryRevocations_Expire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryRevocations()
	store.now = func() time.Time { return now }

	if err := store.Revoke(ctx, "abc", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "abc"); !revoked {
		t.Errorf("expected session to be revoked")
	}

	now = now.Add(2 * time.Minute)
	if revoked, _ := store.IsRevoked(ctx, "abc"); revoked {
		t.Errorf("expected revocation to lapse")
	}

	// a later revocation sweeps the lapsed entry
	if err := store.Revoke(ctx, "def", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.entries["abc"]; ok {
		t.Errorf("expected lapsed entry to be removed")
	}
}
