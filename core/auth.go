package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/averill/authkit/emailjob"
	"github.com/averill/authkit/pkg/crypto"
)

// Auth orchestrates the public authentication operations by composing the
// storage ports and strategies. It holds no mutable in-process state, so a
// single instance is freely shared across concurrent callers.
type Auth struct {
	storage   AuthStorage
	passwords crypto.PasswordHandler
	sessions  *SessionManager
	tokens    *TokenManager

	sender emailjob.Sender
	queue  *emailjob.Queue

	tokenTTL                   time.Duration
	sendVerificationOnRegister bool
	requireEmailVerification   bool

	log *zap.Logger
	now func() time.Time
}

// AuthOptions assembles an Auth. Storage, Passwords, Sessions, and Tokens
// are required; the builder in the root package validates and defaults them.
type AuthOptions struct {
	Storage   AuthStorage
	Passwords crypto.PasswordHandler
	Sessions  *SessionManager
	Tokens    *TokenManager

	// Sender, when set, receives verification emails either via Queue or
	// synchronously. Queue requires Sender.
	Sender emailjob.Sender
	Queue  *emailjob.Queue

	TokenTTL                   time.Duration
	SendVerificationOnRegister bool
	RequireEmailVerification   bool

	Logger *zap.Logger
}

func NewAuth(opts AuthOptions) *Auth {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Auth{
		storage:                    opts.Storage,
		passwords:                  opts.Passwords,
		sessions:                   opts.Sessions,
		tokens:                     opts.Tokens,
		sender:                     opts.Sender,
		queue:                      opts.Queue,
		tokenTTL:                   opts.TokenTTL,
		sendVerificationOnRegister: opts.SendVerificationOnRegister,
		requireEmailVerification:   opts.RequireEmailVerification,
		log:                        opts.Logger,
		now:                        time.Now,
	}
}

// Sessions exposes the session manager for maintenance operations.
func (a *Auth) Sessions() *SessionManager {
	return a.sessions
}

// Tokens exposes the token manager for maintenance operations.
func (a *Auth) Tokens() *TokenManager {
	return a.tokens
}

// RegisterInput contains the data needed to register a new user
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Register creates a new user with an email/password credential account.
//
// Validation runs before any storage call. When configured to send a
// verification email on registration, the token is issued and delivered per
// the queue-then-sync fallback policy; without a sender the token is still
// issued and a later resend can deliver it.
func (a *Auth) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := a.storage.GetUserByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user by email: %v", ErrPersistence, err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := a.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}

	now := a.now()
	user := &User{
		ID:        uuid.NewString(),
		Email:     input.Email,
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: create user: %v", ErrPersistence, err)
	}

	account := &Account{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Provider:          ProviderCredential,
		ProviderAccountID: input.Email,
		PasswordHash:      hash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := a.storage.CreateAccount(ctx, account); err != nil {
		// A user without a credential is unusable; remove the half-created
		// row so the email can be registered again.
		if delErr := a.storage.DeleteUser(ctx, user.ID); delErr != nil {
			a.log.Error("failed to roll back user after account create failure",
				zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: create account: %v", ErrPersistence, err)
	}

	if !a.sendVerificationOnRegister {
		return user, nil
	}

	token, err := a.tokens.Generate(ctx, user.ID, user.Email, TokenEmailVerification, a.tokenTTL)
	if err != nil {
		return nil, err
	}

	if err := a.deliverVerification(ctx, token); err != nil {
		return nil, err
	}

	return user, nil
}

// LoginInput contains the credentials for authentication
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// Optional client metadata recorded on the session.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult contains the authenticated user and their session
type LoginResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Token   string   `json:"token"` // The raw token (not the hash)
}

// Login authenticates a user by email and password and issues a session.
// "No such user" and "wrong password" are both ErrInvalidCredentials so the
// response does not reveal whether an email is registered.
func (a *Auth) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := a.storage.GetUserByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user by email: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	account, err := a.storage.GetAccountByProvider(ctx, ProviderCredential, input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: find credential account: %v", ErrPersistence, err)
	}
	if account == nil || account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	valid, err := a.passwords.Verify(input.Password, account.PasswordHash)
	if err != nil {
		// An unparsable stored hash is data corruption, not a wrong password.
		return nil, fmt.Errorf("%w: verify password: %v", ErrInternal, err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if a.requireEmailVerification && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	result, err := a.sessions.Create(ctx, user.ID, SessionMetadata{
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:    user,
		Session: result.Session,
		Token:   result.Token,
	}, nil
}

// VerifySession resolves a bearer token to the owning user.
func (a *Auth) VerifySession(ctx context.Context, token string) (*User, error) {
	session, err := a.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := a.storage.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Logout invalidates the session for the given token; idempotent.
func (a *Auth) Logout(ctx context.Context, token string) error {
	return a.sessions.Destroy(ctx, token)
}
