package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	// DefaultTokenLength is the number of random bytes in a token (256 bits).
	DefaultTokenLength = 32
)

// TokenPair is a freshly generated opaque token and its storage-side hash.
// Only the hash is ever persisted; the plaintext is handed to the caller once.
type TokenPair struct {
	Token string // value returned to the client
	Hash  string // value in storage
}

func generateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateHashedToken draws a cryptographically random token and returns it
// together with its SHA-256 hex digest. byteLength <= 0 uses the default.
func GenerateHashedToken(byteLength int) (*TokenPair, error) {
	token, err := generateToken(byteLength)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Token: token,
		Hash:  HashToken(token),
	}, nil
}

// VerifyToken reports whether token hashes to storedHash using a
// constant-time comparison.
func VerifyToken(token, storedHash string) (bool, error) {
	if token == "" || storedHash == "" {
		return false, errors.New("token and hash cannot be empty")
	}

	tokenHash := HashToken(token)

	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(storedHash)) == 1, nil
}

// HashToken computes the SHA-256 hex digest used for storage-side lookup.
// Tokens are already high-entropy random values, so a fast one-way hash is
// sufficient; this is deliberately not a password hash.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
