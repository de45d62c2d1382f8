package core

import "errors"

// Validation errors (client input)
var (
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password validation failed")
)

// User & credential errors
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Session errors
var (
	ErrInvalidSession = errors.New("session not found or expired")
)

// Verification token errors
var (
	ErrInvalidToken         = errors.New("token not found or invalid")
	ErrTokenAlreadyUsed     = errors.New("token has already been used")
	ErrTokenExpired         = errors.New("token has expired")
	ErrEmailAlreadyVerified = errors.New("email is already verified")
)

// Email delivery errors
var (
	ErrEmailSendFailed = errors.New("email send failed")
)

// Infrastructure errors. ErrPersistence wraps genuine storage failures and
// should be treated as retryable by hosts; every "not found" condition is
// mapped to a specific error above instead.
var (
	ErrPersistence = errors.New("persistence error")
	ErrInternal    = errors.New("internal error")
)
