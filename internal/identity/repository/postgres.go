package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mini-iam/backend/internal/identity/domain"
)

// PostgresRepository resolves login credentials from the users table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a credential repository reading the users table.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindCredentialByEmail returns the credential for login, matched as an email (case-insensitive) or as a
// display name. An email match wins. A name matches only when exactly one user holds it, so a shared
// name never resolves to an arbitrary account. Returns nil, nil when no user matches.
func (r *PostgresRepository) FindCredentialByEmail(ctx context.Context, login string) (*domain.Credential, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, nil
	}
	var c domain.Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash
		FROM users
		WHERE lower(email) = lower($1)
		   OR (name = $1 AND NOT EXISTS (
		       SELECT 1 FROM users o WHERE o.name = $1 AND o.id <> users.id))
		ORDER BY (lower(email) = lower($1)) DESC
		LIMIT 1`, login,
	).Scan(&c.UserID, &c.Email, &c.Name, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
