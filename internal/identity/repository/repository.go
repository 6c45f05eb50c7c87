package repository

import (
	"context"

	"mini-iam/backend/internal/identity/domain"
)

// Repository defines read access to login credentials.
type Repository interface {
	// FindCredentialByEmail returns the credential whose email (case-insensitive) or name equals login,
	// or nil if none. An email match wins over a name match.
	FindCredentialByEmail(ctx context.Context, login string) (*domain.Credential, error)
}
