package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/averill/authkit"
)

func (a *Adapter) CreateAccount(ctx context.Context, account *authkit.Account) error {
	query := `INSERT INTO accounts (id, user_id, provider, provider_account_id, password_hash, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.pool.Exec(ctx, query,
		account.ID, account.UserID, account.Provider, account.ProviderAccountID, account.PasswordHash, account.CreatedAt, account.UpdatedAt,
	)
	return err
}

func (a *Adapter) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*authkit.Account, error) {
	query := `SELECT id, user_id, provider, provider_account_id, password_hash, created_at, updated_at
	          FROM accounts WHERE provider = $1 AND provider_account_id = $2`

	account := &authkit.Account{}
	err := a.pool.QueryRow(ctx, query, provider, providerAccountID).Scan(
		&account.ID, &account.UserID, &account.Provider, &account.ProviderAccountID, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}
