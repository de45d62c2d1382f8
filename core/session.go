package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/averill/authkit/pkg/crypto"
)

type SessionConfig struct {
	// TTL is the session lifetime. Default 24h.
	TTL time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL: 24 * time.Hour,
	}
}

// SessionManager creates, verifies, and destroys bearer-token sessions.
// Session tokens are generated here (cryptographically random, hashed at
// rest); the storage layer never sees the plaintext.
type SessionManager struct {
	config  SessionConfig
	storage SessionStorage
	now     func() time.Time
}

type CreateSessionResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"` // The raw token (not the hash)
}

func NewSessionManager(config SessionConfig, storage SessionStorage) *SessionManager {
	if config.TTL <= 0 {
		config.TTL = DefaultSessionConfig().TTL
	}

	return &SessionManager{
		config:  config,
		storage: storage,
		now:     time.Now,
	}
}

func (sm *SessionManager) Create(ctx context.Context, userID string, meta SessionMetadata) (*CreateSessionResult, error) {
	token, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := sm.now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: token.Hash,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(sm.config.TTL),
		CreatedAt: now,
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrPersistence, err)
	}

	return &CreateSessionResult{
		Session: session,
		Token:   token.Token,
	}, nil
}

// Verify resolves a plaintext bearer token to its session. Absent and
// expired sessions are indistinguishable to the caller.
func (sm *SessionManager) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := sm.storage.GetSessionByHash(ctx, crypto.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("%w: find session: %v", ErrPersistence, err)
	}
	if session == nil {
		return nil, ErrInvalidSession
	}

	if sm.now().After(session.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	return session, nil
}

// Destroy deletes the session for the given token. Destroying a session
// that is already gone is not an error.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if err := sm.storage.DeleteSessionByHash(ctx, crypto.HashToken(token)); err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrPersistence, err)
	}
	return nil
}

// CleanExpired bulk-deletes sessions whose expiry has passed. Maintenance
// operation; never called implicitly.
func (sm *SessionManager) CleanExpired(ctx context.Context) (int, error) {
	n, err := sm.storage.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %v", ErrPersistence, err)
	}
	return n, nil
}
