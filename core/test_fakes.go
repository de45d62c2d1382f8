package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/averill/authkit/emailjob"
)

// Test fakes shared across the core test files. They live in a non-test file
// so the root package tests can reuse them.

// FakeAuthStorage is an in-memory AuthStorage. Safe for concurrent use.
type FakeAuthStorage struct {
	mu       sync.Mutex
	users    map[string]*User              // by ID
	accounts map[string]*Account           // by provider + "\x00" + providerAccountID
	sessions map[string]*Session           // by token hash
	tokens   map[string]*VerificationToken // by token hash

	// FailNext, when set, makes every storage call return this error once
	// per call until cleared. Used to exercise persistence-failure paths.
	FailNext error
}

func NewFakeAuthStorage() *FakeAuthStorage {
	return &FakeAuthStorage{
		users:    make(map[string]*User),
		accounts: make(map[string]*Account),
		sessions: make(map[string]*Session),
		tokens:   make(map[string]*VerificationToken),
	}
}

func (s *FakeAuthStorage) failing() error {
	return s.FailNext
}

func (s *FakeAuthStorage) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *FakeAuthStorage) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *FakeAuthStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *FakeAuthStorage) SetEmailVerified(ctx context.Context, userID string, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	u, ok := s.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	u.EmailVerified = true
	u.EmailVerifiedAt = &verifiedAt
	u.UpdatedAt = verifiedAt
	return nil
}

func (s *FakeAuthStorage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	delete(s.users, id)
	return nil
}

func accountKey(provider, providerAccountID string) string {
	return provider + "\x00" + providerAccountID
}

func (s *FakeAuthStorage) CreateAccount(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	cp := *account
	s.accounts[accountKey(account.Provider, account.ProviderAccountID)] = &cp
	return nil
}

func (s *FakeAuthStorage) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	a, ok := s.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *FakeAuthStorage) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	cp := *session
	s.sessions[session.TokenHash] = &cp
	return nil
}

func (s *FakeAuthStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *FakeAuthStorage) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *FakeAuthStorage) DeleteExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return 0, err
	}
	now := time.Now()
	n := 0
	for hash, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (s *FakeAuthStorage) CreateToken(ctx context.Context, token *VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	cp := *token
	s.tokens[token.TokenHash] = &cp
	return nil
}

func (s *FakeAuthStorage) GetTokenByHash(ctx context.Context, tokenHash string, tokenType TokenType) (*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	t, ok := s.tokens[tokenHash]
	if !ok || t.Type != tokenType {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *FakeAuthStorage) MarkTokenUsed(ctx context.Context, tokenHash string, usedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return false, err
	}
	t, ok := s.tokens[tokenHash]
	if !ok || t.UsedAt != nil {
		return false, nil
	}
	t.UsedAt = &usedAt
	return true, nil
}

func (s *FakeAuthStorage) DeleteExpiredTokens(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return 0, err
	}
	now := time.Now()
	n := 0
	for hash, t := range s.tokens {
		if now.After(t.ExpiresAt) {
			delete(s.tokens, hash)
			n++
		}
	}
	return n, nil
}

// TokenCount reports how many token rows exist, used or not.
func (s *FakeAuthStorage) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// ExpireToken rewinds a stored token's expiry so tests can exercise the
// expired path without sleeping.
func (s *FakeAuthStorage) ExpireToken(tokenHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// FakeEmailSender records sends and can be told to fail the first N calls.
type FakeEmailSender struct {
	mu        sync.Mutex
	sent      []emailjob.Message
	failFirst int
	calls     int

	// Err is the error returned while failing. Defaults to a generic one.
	Err error
}

func NewFakeEmailSender() *FakeEmailSender {
	return &FakeEmailSender{}
}

// FailFirst makes the next n calls return an error before sends succeed.
func (f *FakeEmailSender) FailFirst(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFirst = n
}

func (f *FakeEmailSender) SendVerificationEmail(ctx context.Context, msg emailjob.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		if f.Err != nil {
			return f.Err
		}
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

// Calls reports the total number of send attempts, failed ones included.
func (f *FakeEmailSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Sent returns a copy of the successfully delivered messages.
func (f *FakeEmailSender) Sent() []emailjob.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]emailjob.Message, len(f.sent))
	copy(out, f.sent)
	return out
}
