package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xtrntr/p2pexchange/internal/models"
)

// CreateAccount inserts a new account. It returns ErrNicknameTaken if the
// username already exists, including when a concurrent request won the race.
func (db *DB) CreateAccount(ctx context.Context, username, credentialHash string) (*models.Account, error) {
	account := &models.Account{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO accounts (username, credential_hash) VALUES ($1, $2) RETURNING id, username, credential_hash, is_staff, created_at",
		username, credentialHash).Scan(&account.ID, &account.Username, &account.CredentialHash, &account.IsStaff, &account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNicknameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccountByUsername retrieves an account by its nickname
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	account := &models.Account{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, credential_hash, is_staff, created_at FROM accounts WHERE username = $1",
		username).Scan(&account.ID, &account.Username, &account.CredentialHash, &account.IsStaff, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByID retrieves an account by id
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	account := &models.Account{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, credential_hash, is_staff, created_at FROM accounts WHERE id = $1",
		id).Scan(&account.ID, &account.Username, &account.CredentialHash, &account.IsStaff, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes an account and, through the foreign keys, the
// orders it made
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
