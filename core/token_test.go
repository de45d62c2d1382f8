package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/averill/authkit/pkg/crypto"
)

// Requirement: Generate stores only the token hash and returns the
// plaintext exactly once with the requested expiry.
func TestTokenManager_Generate(t *testing.T) {
	storage := NewFakeAuthStorage()
	tm := NewTokenManager(storage)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return base }

	issued, err := tm.Generate(context.Background(), "user-1", "alice@example.com", TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if issued.Token == "" {
		t.Fatal("Generate() should return the plaintext token")
	}
	if want := base.Add(time.Hour); !issued.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", issued.ExpiresAt, want)
	}

	record, err := storage.GetTokenByHash(context.Background(), crypto.HashToken(issued.Token), TokenEmailVerification)
	if err != nil || record == nil {
		t.Fatalf("stored token not found by hash (err %v)", err)
	}
	if record.TokenHash == issued.Token {
		t.Error("storage must hold the hash, not the plaintext")
	}
	if record.UsedAt != nil {
		t.Error("freshly issued token must not be marked used")
	}
}

// Requirement: tokens may be identifier-only; an empty user ID round-trips
// through storage and verification.
func TestTokenManager_Generate_IdentifierOnly(t *testing.T) {
	storage := NewFakeAuthStorage()
	tm := NewTokenManager(storage)

	issued, err := tm.Generate(context.Background(), "", "alice@example.com", TokenMagicLink, time.Hour)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if issued.UserID != "" {
		t.Errorf("UserID = %q, want empty", issued.UserID)
	}

	record, err := tm.Verify(context.Background(), issued.Token, TokenMagicLink)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if record.UserID != "" || record.Identifier != "alice@example.com" {
		t.Errorf("record = (%q, %q), want empty user ID and the identifier", record.UserID, record.Identifier)
	}
}

// Requirement: Generate with a non-positive TTL falls back to the default.
func TestTokenManager_Generate_DefaultTTL(t *testing.T) {
	storage := NewFakeAuthStorage()
	tm := NewTokenManager(storage)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return base }

	issued, err := tm.Generate(context.Background(), "user-1", "alice@example.com", TokenEmailVerification, 0)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if want := base.Add(DefaultTokenTTL); !issued.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want default TTL %v", issued.ExpiresAt, want)
	}
}

// Requirement: Verify walks the state machine in a fixed order: unknown
// tokens are invalid, used wins over expired, and expiry is checked against
// the current clock. Verify itself never transitions state.
func TestTokenManager_Verify_StateMachine(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(tm *TokenManager, storage *FakeAuthStorage) string // returns token to verify
		wantErr error
	}{
		{
			name: "unknown token is invalid",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				return "never-issued"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong type is invalid",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				issued, _ := tm.Generate(context.Background(), "u", "a@b.co", TokenPasswordReset, time.Hour)
				return issued.Token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "issued token verifies",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				issued, _ := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Hour)
				return issued.Token
			},
		},
		{
			name: "consumed token reports already used",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				issued, _ := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Hour)
				if err := tm.MarkUsed(context.Background(), issued.Token); err != nil {
					t.Fatalf("MarkUsed() unexpected error: %v", err)
				}
				return issued.Token
			},
			wantErr: ErrTokenAlreadyUsed,
		},
		{
			name: "expired token reports expired",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				issued, _ := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Minute)
				tm.now = func() time.Time { return time.Now().Add(time.Hour) }
				return issued.Token
			},
			wantErr: ErrTokenExpired,
		},
		{
			name: "used wins over expired",
			prepare: func(tm *TokenManager, storage *FakeAuthStorage) string {
				issued, _ := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Minute)
				if err := tm.MarkUsed(context.Background(), issued.Token); err != nil {
					t.Fatalf("MarkUsed() unexpected error: %v", err)
				}
				tm.now = func() time.Time { return time.Now().Add(time.Hour) }
				return issued.Token
			},
			wantErr: ErrTokenAlreadyUsed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			storage := NewFakeAuthStorage()
			tm := NewTokenManager(storage)
			token := test.prepare(tm, storage)

			record, err := tm.Verify(context.Background(), token, TokenEmailVerification)

			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if record == nil || record.UsedAt != nil {
				t.Fatal("Verify() should return the unconsumed record")
			}

			// Read-only: verifying again still succeeds.
			if _, err := tm.Verify(context.Background(), token, TokenEmailVerification); err != nil {
				t.Fatalf("second Verify() unexpected error: %v", err)
			}
		})
	}
}

// Requirement: of N concurrent MarkUsed calls for one token, exactly one wins.
func TestTokenManager_MarkUsed_Concurrent(t *testing.T) {
	storage := NewFakeAuthStorage()
	tm := NewTokenManager(storage)
	issued, err := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tm.MarkUsed(context.Background(), issued.Token); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", won)
	}
}

// Requirement: CleanExpired removes only tokens past their expiry.
func TestTokenManager_CleanExpired(t *testing.T) {
	storage := NewFakeAuthStorage()
	tm := NewTokenManager(storage)

	live, err := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	stale, err := tm.Generate(context.Background(), "u", "a@b.co", TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	storage.ExpireToken(crypto.HashToken(stale.Token))

	n, err := tm.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired() unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("CleanExpired() removed %d tokens, want 1", n)
	}
	if _, err := tm.Verify(context.Background(), live.Token, TokenEmailVerification); err != nil {
		t.Fatalf("live token should survive cleanup: %v", err)
	}
	if _, err := tm.Verify(context.Background(), stale.Token, TokenEmailVerification); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("stale token should be gone, got %v", err)
	}
}
