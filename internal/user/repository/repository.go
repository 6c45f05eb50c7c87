package repository

import (
	"context"
	"errors"

	"mini-iam/backend/internal/user/domain"
)

var (
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("user: email already exists")
	// ErrDuplicateRole is returned by CreateRole and UpdateRole when the role name is taken.
	ErrDuplicateRole = errors.New("user: role already exists")
	// ErrNotFound is returned by Update and UpdateRole when the row does not exist.
	ErrNotFound = errors.New("user: not found")
)

// Repository defines persistence for users and roles.
// Lookups return nil, nil when the row does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Update writes the user's name and change history and replaces its role set with u.Roles, atomically.
	Update(ctx context.Context, u *domain.User) error
	GetRoleByID(ctx context.Context, id string) (*domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
	CreateRole(ctx context.Context, r *domain.Role) error
	UpdateRole(ctx context.Context, r *domain.Role) error
	ListRoles(ctx context.Context) ([]domain.Role, error)
	// AddUserRole grants roleID to userID. Granting a held role is a no-op.
	AddUserRole(ctx context.Context, userID, roleID string) error
}
