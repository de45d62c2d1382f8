package core

import (
	"context"
	"time"
)

// Storage ports consumed by the auth core. Implementations own all durable
// state and must be safe for concurrent use (connection pooling is their
// concern). Lookups report "not found" as a nil result with a nil error,
// never as an error; only genuine infrastructure failures are errors.

// UserStorage defines user-related database operations
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SetEmailVerified marks the user's email as verified at the given time.
	SetEmailVerified(ctx context.Context, userID string, verifiedAt time.Time) error

	DeleteUser(ctx context.Context, id string) error
}

// AccountStorage defines credential-account database operations
type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error

	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error)
}

// SessionStorage defines session-related database operations
type SessionStorage interface {
	CreateSession(ctx context.Context, s *Session) error

	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteSessionByHash removes a session. Deleting a session that does
	// not exist is not an error (idempotent logout).
	DeleteSessionByHash(ctx context.Context, tokenHash string) error

	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// TokenStorage defines verification-token database operations
type TokenStorage interface {
	CreateToken(ctx context.Context, t *VerificationToken) error

	GetTokenByHash(ctx context.Context, tokenHash string, tokenType TokenType) (*VerificationToken, error)

	// MarkTokenUsed sets used_at iff it is still unset, and reports whether
	// this call won. The conditional update is the correctness precondition
	// that keeps two concurrent verifications of the same token from both
	// succeeding; implementations must not split it into a read and a write.
	MarkTokenUsed(ctx context.Context, tokenHash string, usedAt time.Time) (bool, error)

	DeleteExpiredTokens(ctx context.Context) (int, error)
}

// AuthStorage is the full persistence capability supplied by the host.
type AuthStorage interface {
	UserStorage
	AccountStorage
	SessionStorage
	TokenStorage
}
