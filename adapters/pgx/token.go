package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/averill/authkit"
)

// nullableID maps an empty user ID to NULL for identifier-only tokens.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (a *Adapter) CreateToken(ctx context.Context, token *authkit.VerificationToken) error {
	query := `INSERT INTO verification_tokens (id, user_id, identifier, token_hash, token_type, expires_at, created_at, used_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.pool.Exec(ctx, query,
		token.ID, nullableID(token.UserID), token.Identifier, token.TokenHash, token.Type, token.ExpiresAt, token.CreatedAt, token.UsedAt,
	)
	return err
}

func (a *Adapter) GetTokenByHash(ctx context.Context, tokenHash string, tokenType authkit.TokenType) (*authkit.VerificationToken, error) {
	query := `SELECT id, user_id, identifier, token_hash, token_type, expires_at, created_at, used_at
	          FROM verification_tokens WHERE token_hash = $1 AND token_type = $2`

	token := &authkit.VerificationToken{}
	var userID *string
	err := a.pool.QueryRow(ctx, query, tokenHash, tokenType).Scan(
		&token.ID, &userID, &token.Identifier, &token.TokenHash, &token.Type, &token.ExpiresAt, &token.CreatedAt, &token.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID != nil {
		token.UserID = *userID
	}
	return token, nil
}

// MarkTokenUsed consumes a token with a conditional update. The WHERE clause
// guarantees that of any number of concurrent callers exactly one sees a row
// affected; the rest report false.
func (a *Adapter) MarkTokenUsed(ctx context.Context, tokenHash string, usedAt time.Time) (bool, error) {
	query := `UPDATE verification_tokens SET used_at = $1 WHERE token_hash = $2 AND used_at IS NULL`

	tag, err := a.pool.Exec(ctx, query, usedAt, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (a *Adapter) DeleteExpiredTokens(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
