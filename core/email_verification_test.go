package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func registerUnverified(t *testing.T, auth *Auth, email string) *User {
	t.Helper()
	user, err := auth.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	return user
}

// Requirement: the full verification flow consumes the token exactly once.
// A second use fails with ErrTokenAlreadyUsed and a fresh token for an
// already verified user fails with ErrEmailAlreadyVerified.
func TestAuth_VerifyEmail_Lifecycle(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	user := registerUnverified(t, auth, "alice@example.com")

	// Act: request verification, then consume the delivered token.
	issued, err := auth.SendEmailVerification(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SendEmailVerification() unexpected error: %v", err)
	}
	if issued == nil || issued.Token == "" {
		t.Fatal("SendEmailVerification() should return the issued token")
	}
	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	token := sent[0].Token
	if token != issued.Token {
		t.Fatal("delivered token should match the returned one")
	}

	verified, err := auth.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyEmail() unexpected error: %v", err)
	}
	if !verified.EmailVerified || verified.EmailVerifiedAt == nil {
		t.Fatal("user should be marked verified with a timestamp")
	}

	// The same token again: consumed wins over everything else.
	if _, err := auth.VerifyEmail(context.Background(), token); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("second VerifyEmail() error = %v, want ErrTokenAlreadyUsed", err)
	}

	// Asking for another email once verified is rejected.
	if _, err := auth.SendEmailVerification(context.Background(), user.ID); !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("SendEmailVerification() after verify error = %v, want ErrEmailAlreadyVerified", err)
	}
}

// Requirement: a token that never existed is ErrInvalidToken and an expired
// token is ErrTokenExpired; neither mutates state.
func TestAuth_VerifyEmail_InvalidAndExpired(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	user := registerUnverified(t, auth, "alice@example.com")

	if _, err := auth.VerifyEmail(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("VerifyEmail(unknown) error = %v, want ErrInvalidToken", err)
	}

	token, err := auth.Tokens().Generate(context.Background(), user.ID, user.Email, TokenEmailVerification, time.Minute)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	// Push the manager's clock past the token expiry.
	auth.Tokens().now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := auth.VerifyEmail(context.Background(), token.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("VerifyEmail(expired) error = %v, want ErrTokenExpired", err)
	}

	fresh, err := storage.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() unexpected error: %v", err)
	}
	if fresh.EmailVerified {
		t.Error("failed verification must not mark the user verified")
	}
}

// Requirement: issuing a new token does not invalidate earlier ones; any
// outstanding token can verify the account, and the rest then report used
// or already-verified rather than silently succeeding.
func TestAuth_SendEmailVerification_MultipleOutstandingTokens(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	user := registerUnverified(t, auth, "alice@example.com")

	for i := 0; i < 3; i++ {
		if _, err := auth.SendEmailVerification(context.Background(), user.ID); err != nil {
			t.Fatalf("SendEmailVerification() #%d unexpected error: %v", i+1, err)
		}
	}
	sent := sender.Sent()
	if len(sent) != 3 {
		t.Fatalf("expected 3 emails, got %d", len(sent))
	}
	if storage.TokenCount() != 3 {
		t.Fatalf("expected 3 stored tokens, got %d", storage.TokenCount())
	}

	// The oldest token still works.
	if _, err := auth.VerifyEmail(context.Background(), sent[0].Token); err != nil {
		t.Fatalf("VerifyEmail(first token) unexpected error: %v", err)
	}

	// The remaining tokens are still Issued, but the user is verified now.
	if _, err := auth.VerifyEmail(context.Background(), sent[1].Token); !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("VerifyEmail(second token) error = %v, want ErrEmailAlreadyVerified", err)
	}
}

// Requirement: ResendEmailVerification resolves the email to a user and
// reports unknown addresses and already verified accounts.
func TestAuth_ResendEmailVerification(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	registerUnverified(t, auth, "alice@example.com")

	issued, err := auth.ResendEmailVerification(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("ResendEmailVerification() unexpected error: %v", err)
	}
	if issued == nil || issued.Token == "" {
		t.Fatal("ResendEmailVerification() should return the issued token")
	}
	if len(sender.Sent()) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.Sent()))
	}

	if _, err := auth.ResendEmailVerification(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ResendEmailVerification(unknown) error = %v, want ErrUserNotFound", err)
	}
}

// Requirement: every issuing operation returns a fresh token string distinct
// from all previously issued ones.
func TestAuth_ResendEmailVerification_FreshToken(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	user := registerUnverified(t, auth, "alice@example.com")

	first, err := auth.SendEmailVerification(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SendEmailVerification() unexpected error: %v", err)
	}

	seen := map[string]bool{first.Token: true}
	for i := 0; i < 3; i++ {
		issued, err := auth.ResendEmailVerification(context.Background(), "alice@example.com")
		if err != nil {
			t.Fatalf("ResendEmailVerification() #%d unexpected error: %v", i+1, err)
		}
		if seen[issued.Token] {
			t.Fatalf("ResendEmailVerification() #%d returned a previously issued token", i+1)
		}
		seen[issued.Token] = true
	}
}

// Requirement: a host without an email sender can still issue verification
// tokens and deliver them out of band.
func TestAuth_SendEmailVerification_NoSender(t *testing.T) {
	storage := NewFakeAuthStorage()
	auth := newTestAuth(t, storage, nil)
	user := registerUnverified(t, auth, "alice@example.com")

	issued, err := auth.SendEmailVerification(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SendEmailVerification() without sender unexpected error: %v", err)
	}
	if issued == nil || issued.Token == "" {
		t.Fatal("SendEmailVerification() should return the issued token")
	}
	if storage.TokenCount() != 1 {
		t.Fatalf("expected 1 stored token, got %d", storage.TokenCount())
	}

	// The returned token verifies the account like a delivered one would.
	verified, err := auth.VerifyEmail(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("VerifyEmail() unexpected error: %v", err)
	}
	if verified.ID != user.ID || !verified.EmailVerified {
		t.Error("returned token should verify the issuing user")
	}
}

// Requirement: a synchronous send failure surfaces as ErrEmailSendFailed
// and the issued token remains usable once delivery is retried.
func TestAuth_SendEmailVerification_SyncFailure(t *testing.T) {
	storage := NewFakeAuthStorage()
	sender := NewFakeEmailSender()
	sender.FailFirst(1)
	auth := newTestAuth(t, storage, func(o *AuthOptions) {
		o.Sender = sender
	})
	user := registerUnverified(t, auth, "alice@example.com")

	_, err := auth.SendEmailVerification(context.Background(), user.ID)
	if !errors.Is(err, ErrEmailSendFailed) {
		t.Fatalf("SendEmailVerification() error = %v, want ErrEmailSendFailed", err)
	}
	if !IsRetryable(err) {
		t.Error("a failed send should be classified retryable")
	}

	// The retry succeeds and delivers a working token.
	if _, err := auth.SendEmailVerification(context.Background(), user.ID); err != nil {
		t.Fatalf("retry SendEmailVerification() unexpected error: %v", err)
	}
	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 delivered email, got %d", len(sent))
	}
	if _, err := auth.VerifyEmail(context.Background(), sent[0].Token); err != nil {
		t.Fatalf("VerifyEmail() unexpected error: %v", err)
	}
}
