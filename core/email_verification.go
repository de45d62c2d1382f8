package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/averill/authkit/emailjob"
)

// SendEmailVerification issues a fresh verification token for the user,
// attempts delivery when a sender is configured, and returns the issued
// token. Previously issued tokens stay valid until they expire or are
// consumed; issuing a new one does not revoke them.
//
// Hosts without a sender still get the token and can deliver it themselves.
func (a *Auth) SendEmailVerification(ctx context.Context, userID string) (*IssuedToken, error) {
	user, err := a.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.EmailVerified {
		return nil, ErrEmailAlreadyVerified
	}

	token, err := a.tokens.Generate(ctx, user.ID, user.Email, TokenEmailVerification, a.tokenTTL)
	if err != nil {
		return nil, err
	}

	if err := a.deliverVerification(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// ResendEmailVerification is SendEmailVerification keyed by email address,
// for hosts whose resend endpoint takes the address the user typed.
func (a *Auth) ResendEmailVerification(ctx context.Context, email string) (*IssuedToken, error) {
	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user by email: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return a.SendEmailVerification(ctx, user.ID)
}

// VerifyEmail consumes a verification token and marks the owning user's
// email as verified.
//
// The token is validated read-only first, then consumed with a conditional
// update so concurrent verifications of the same token resolve to exactly
// one winner.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (*User, error) {
	record, err := a.tokens.Verify(ctx, token, TokenEmailVerification)
	if err != nil {
		return nil, err
	}

	user, err := a.storage.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.EmailVerified {
		// An older still-valid token for an already verified address. Leave
		// the token alone; it will expire on its own.
		return nil, ErrEmailAlreadyVerified
	}

	if err := a.tokens.MarkUsed(ctx, token); err != nil {
		return nil, err
	}

	verifiedAt := a.now()
	if err := a.storage.SetEmailVerified(ctx, user.ID, verifiedAt); err != nil {
		return nil, fmt.Errorf("%w: set email verified: %v", ErrPersistence, err)
	}

	user.EmailVerified = true
	user.EmailVerifiedAt = &verifiedAt
	user.UpdatedAt = verifiedAt

	return user, nil
}

// deliverVerification hands the token to the queue when one is running and
// falls back to a synchronous send otherwise. Without a sender it is a no-op:
// the issuing operation still succeeds and returns the token. Only a failed
// synchronous send surfaces as an error; queued jobs report failures through
// the worker log.
func (a *Auth) deliverVerification(ctx context.Context, token *IssuedToken) error {
	if a.queue != nil {
		job := emailjob.NewVerificationJob(token.Identifier, token.Token, token.ExpiresAt, token.UserID)
		err := a.queue.Enqueue(ctx, job)
		if err == nil {
			return nil
		}
		a.log.Warn("email queue unavailable, sending synchronously",
			zap.String("recipient", token.Identifier),
			zap.Error(err))
	}

	if a.sender == nil {
		return nil
	}

	msg := emailjob.Message{
		Recipient: token.Identifier,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}
	if err := a.sender.SendVerificationEmail(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}
	return nil
}

// IsRetryable reports whether err is an infrastructure failure the caller
// may retry, as opposed to a deterministic domain outcome.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrEmailSendFailed)
}
