package emailjob

import (
	"context"
	"time"
)

// JobType discriminates what kind of email a job delivers.
type JobType string

const (
	JobEmailVerification JobType = "email_verification"
	JobPasswordReset     JobType = "password_reset"
	JobMagicLink         JobType = "magic_link"
)

// Message carries everything a Sender needs to deliver one verification email.
type Message struct {
	Recipient string    `json:"recipient"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sender delivers verification emails. Implemented by the host application
// (SMTP, SES, SendGrid, ...). A returned error triggers the worker's retry
// policy, or surfaces to the caller on the synchronous fallback path.
type Sender interface {
	SendVerificationEmail(ctx context.Context, msg Message) error
}

// Job is one pending delivery attempt. Jobs exist only in memory; anything
// still buffered when the process dies is lost.
type Job struct {
	Type           JobType
	Recipient      string
	Token          string
	TokenExpiresAt time.Time
	UserID         string
	Attempts       int
	MaxAttempts    int // 0 means use the worker's configured default
	CreatedAt      time.Time
}

// NewVerificationJob builds an email-verification job for the given recipient.
func NewVerificationJob(recipient, token string, tokenExpiresAt time.Time, userID string) Job {
	return Job{
		Type:           JobEmailVerification,
		Recipient:      recipient,
		Token:          token,
		TokenExpiresAt: tokenExpiresAt,
		UserID:         userID,
		CreatedAt:      time.Now(),
	}
}

func (j Job) message() Message {
	return Message{
		Recipient: j.Recipient,
		Token:     j.Token,
		ExpiresAt: j.TokenExpiresAt,
	}
}
