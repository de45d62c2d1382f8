package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/averill/authkit"
)

func (a *Adapter) CreateSession(ctx context.Context, session *authkit.Session) error {
	query := `INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.pool.Exec(ctx, query,
		session.ID, session.UserID, session.TokenHash, session.IPAddress, session.UserAgent, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*authkit.Session, error) {
	query := `SELECT id, user_id, token_hash, ip_address, user_agent, expires_at, created_at
	          FROM sessions WHERE token_hash = $1`

	session := &authkit.Session{}
	err := a.pool.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.IPAddress, &session.UserAgent, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
