// Package authkit is an embeddable authentication core: password
// credentials, opaque database-backed sessions, single-use email
// verification tokens, and asynchronous email delivery.
//
// Hosts construct an Auth with New, plug in a storage adapter (see
// adapters/pgx) and optionally mount HTTP routes (see adapters/fiber).
package authkit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/averill/authkit/core"
	"github.com/averill/authkit/emailjob"
	"github.com/averill/authkit/pkg/crypto"
)

// interfaces
type (
	AuthStorage    = core.AuthStorage
	UserStorage    = core.UserStorage
	AccountStorage = core.AccountStorage
	SessionStorage = core.SessionStorage
	TokenStorage   = core.TokenStorage

	PasswordHandler = crypto.PasswordHandler
	EmailSender     = emailjob.Sender
)

// structs
type (
	Auth          = core.Auth
	SessionConfig = core.SessionConfig

	RegisterInput = core.RegisterInput
	LoginInput    = core.LoginInput
	LoginResult   = core.LoginResult

	EmailMessage = emailjob.Message
	EmailJob     = emailjob.Job
)

type (
	User              = core.User
	Account           = core.Account
	Session           = core.Session
	SessionMetadata   = core.SessionMetadata
	VerificationToken = core.VerificationToken
	IssuedToken       = core.IssuedToken
	TokenType         = core.TokenType
)

const (
	ProviderCredential = core.ProviderCredential

	TokenEmailVerification = core.TokenEmailVerification
	TokenPasswordReset     = core.TokenPasswordReset
	TokenMagicLink         = core.TokenMagicLink
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
	DefaultEmailConfig   = emailjob.DefaultConfig
)

var (
	ErrInvalidEmailFormat = core.ErrInvalidEmailFormat
	ErrWeakPassword       = core.ErrWeakPassword
)

var (
	ErrUserAlreadyExists  = core.ErrUserAlreadyExists
	ErrUserNotFound       = core.ErrUserNotFound
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrEmailNotVerified   = core.ErrEmailNotVerified
	ErrInvalidSession     = core.ErrInvalidSession
)

var (
	ErrInvalidToken         = core.ErrInvalidToken
	ErrTokenAlreadyUsed     = core.ErrTokenAlreadyUsed
	ErrTokenExpired         = core.ErrTokenExpired
	ErrEmailAlreadyVerified = core.ErrEmailAlreadyVerified
)

var (
	ErrEmailSendFailed = core.ErrEmailSendFailed
	ErrQueueFull       = emailjob.ErrQueueFull
	ErrWorkerStopped   = emailjob.ErrWorkerStopped
	ErrPersistence     = core.ErrPersistence
)

// Builder validation errors.
var (
	ErrStorageRequired     = errors.New("storage adapter is required")
	ErrEmailSenderRequired = errors.New("email queue requires an email sender")
)

// Config assembles an authentication core. Storage is required; everything
// else has a sensible default.
type Config struct {
	// Storage persists users, accounts, sessions, and tokens.
	Storage AuthStorage

	// PasswordHasher defaults to argon2id with OWASP parameters.
	PasswordHasher PasswordHandler

	// SessionConfig defaults to a 24h TTL.
	SessionConfig *SessionConfig

	// TokenTTL is the verification-token lifetime. Default 24h.
	TokenTTL time.Duration

	// EmailSender delivers verification emails. Without one, registration
	// still works but no verification emails can be issued.
	EmailSender EmailSender

	// EmailQueue configures background delivery. Requires EmailSender.
	// When nil, emails are sent synchronously.
	EmailQueue *emailjob.Config

	// SendVerificationOnRegister issues and delivers a verification token
	// as part of Register.
	SendVerificationOnRegister bool

	// RequireEmailVerification makes Login fail for unverified users.
	RequireEmailVerification bool

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Kit is a configured authentication core plus its background email worker,
// if one was requested.
type Kit struct {
	*Auth

	worker *emailjob.Worker
	queue  *emailjob.Queue
	log    *zap.Logger
}

func New(config Config) (*Kit, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.EmailQueue != nil && config.EmailSender == nil {
		return nil, ErrEmailSenderRequired
	}

	// Set Defaults

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := core.DefaultSessionConfig()
		sessionConfig = &defaults
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		queue  *emailjob.Queue
		worker *emailjob.Worker
	)
	if config.EmailQueue != nil {
		queue, worker = emailjob.New(config.EmailSender, *config.EmailQueue, logger)
	}

	auth := core.NewAuth(core.AuthOptions{
		Storage:                    config.Storage,
		Passwords:                  passwordHasher,
		Sessions:                   core.NewSessionManager(*sessionConfig, config.Storage),
		Tokens:                     core.NewTokenManager(config.Storage),
		Sender:                     config.EmailSender,
		Queue:                      queue,
		TokenTTL:                   config.TokenTTL,
		SendVerificationOnRegister: config.SendVerificationOnRegister,
		RequireEmailVerification:   config.RequireEmailVerification,
		Logger:                     logger,
	})

	return &Kit{
		Auth:   auth,
		worker: worker,
		queue:  queue,
		log:    logger,
	}, nil
}

// StartEmailWorker launches the background delivery worker configured via
// Config.EmailQueue. The returned handle owns shutdown. Returns nil when no
// queue was configured.
func (k *Kit) StartEmailWorker(ctx context.Context) *emailjob.Handle {
	if k.worker == nil {
		return nil
	}
	return k.worker.Start(ctx)
}

// EmailQueue returns the producer handle, or nil when no queue was configured.
func (k *Kit) EmailQueue() *emailjob.Queue {
	return k.queue
}
