package core

import "time"

// User represents a user account in the system
//
// This is the "identity" - who someone is
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProviderCredential is the provider ID for email/password authentication.
// For credential accounts the provider account ID is the email address.
const ProviderCredential = "credential"

// Account represents an authentication method
//
// This is the "credential" - how someone proves who they are
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	PasswordHash      string    `json:"-"` // Never expose in JSON
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Session represents an active login session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionMetadata is optional client information recorded at login.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenType discriminates single-use verification tokens.
type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
	TokenPasswordReset     TokenType = "password_reset"
	TokenMagicLink         TokenType = "magic_link"
)

// VerificationToken is the stored form of a single-use, expiring token.
// The plaintext token is never persisted; only its hash is.
//
// A token is valid iff UsedAt is nil, ExpiresAt is in the future, and its
// hash matches a stored record of the requested type.
type VerificationToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId,omitempty"` // may be empty for identifier-only tokens
	Identifier string     `json:"identifier"`       // the email address the token targets
	TokenHash  string     `json:"-"`
	Type       TokenType  `json:"type"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UsedAt     *time.Time `json:"usedAt,omitempty"` // non-nil marks the token consumed
}
