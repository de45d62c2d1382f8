package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/averill/authkit"
)

const userColumns = `id, email, name, email_verified, email_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*authkit.User, error) {
	user := &authkit.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.EmailVerified, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *authkit.User) error {
	query := `INSERT INTO users (id, email, name, email_verified, email_verified_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.pool.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.EmailVerified, user.EmailVerifiedAt, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*authkit.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(a.pool.QueryRow(ctx, query, id))
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*authkit.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(a.pool.QueryRow(ctx, query, email))
}

func (a *Adapter) SetEmailVerified(ctx context.Context, userID string, verifiedAt time.Time) error {
	query := `UPDATE users SET email_verified = TRUE, email_verified_at = $1, updated_at = $1 WHERE id = $2`
	_, err := a.pool.Exec(ctx, query, verifiedAt, userID)
	return err
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
