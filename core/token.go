package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/averill/authkit/pkg/crypto"
)

// DefaultTokenTTL is the verification-token lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// IssuedToken is the one-time handoff of a freshly generated token.
// The plaintext is returned to the caller exactly once and never persisted.
type IssuedToken struct {
	Token      string    `json:"token"`
	Identifier string    `json:"identifier"`
	UserID     string    `json:"userId,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// TokenManager drives the single-use token state machine:
//
//	Issued -> Consumed (mark-used)
//	Issued -> Expired  (clock passes expires_at, used_at still unset)
//
// Anything without a matching stored row is Invalid.
type TokenManager struct {
	storage TokenStorage
	now     func() time.Time
}

func NewTokenManager(storage TokenStorage) *TokenManager {
	return &TokenManager{
		storage: storage,
		now:     time.Now,
	}
}

// Generate creates a new Issued token for (userID, identifier) and returns
// the plaintext once. Only the SHA-256 hash is stored.
func (tm *TokenManager) Generate(ctx context.Context, userID, identifier string, tokenType TokenType, ttl time.Duration) (*IssuedToken, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := tm.now()
	record := &VerificationToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		Identifier: identifier,
		TokenHash:  pair.Hash,
		Type:       tokenType,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	if err := tm.storage.CreateToken(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: create token: %v", ErrPersistence, err)
	}

	return &IssuedToken{
		Token:      pair.Token,
		Identifier: identifier,
		UserID:     userID,
		ExpiresAt:  record.ExpiresAt,
	}, nil
}

// Verify resolves a plaintext token to its stored record. It is read-only
// and does not transition state. The check order matters for error
// reporting: not-found, then already-used, then expired.
func (tm *TokenManager) Verify(ctx context.Context, token string, tokenType TokenType) (*VerificationToken, error) {
	record, err := tm.storage.GetTokenByHash(ctx, crypto.HashToken(token), tokenType)
	if err != nil {
		return nil, fmt.Errorf("%w: find token: %v", ErrPersistence, err)
	}
	if record == nil {
		return nil, ErrInvalidToken
	}

	if record.UsedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}

	if tm.now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return record, nil
}

// MarkUsed consumes the token. The storage layer performs a conditional
// update, so of two concurrent callers exactly one wins; the loser gets
// ErrTokenAlreadyUsed.
func (tm *TokenManager) MarkUsed(ctx context.Context, token string) error {
	won, err := tm.storage.MarkTokenUsed(ctx, crypto.HashToken(token), tm.now())
	if err != nil {
		return fmt.Errorf("%w: mark token used: %v", ErrPersistence, err)
	}
	if !won {
		return ErrTokenAlreadyUsed
	}
	return nil
}

// CleanExpired bulk-deletes tokens whose expiry has passed. Maintenance
// operation; never called implicitly by Generate or Verify.
func (tm *TokenManager) CleanExpired(ctx context.Context) (int, error) {
	n, err := tm.storage.DeleteExpiredTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired tokens: %v", ErrPersistence, err)
	}
	return n, nil
}
