package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mini-iam/backend/internal/security"
	"mini-iam/backend/internal/user/domain"
	"mini-iam/backend/internal/user/repository"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserNotFound           = errors.New("user not found")
	// ErrUnknownRole is returned when a request names a role that does not exist.
	ErrUnknownRole = errors.New("unknown role")
	// ErrRoleNotFound is returned when the role addressed by id does not exist.
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrStorageFailure    = errors.New("storage failure")
)

// UserService manages users and role grants.
// Mutating methods take byUserID, the acting user recorded in the change history; "" means no caller.
type UserService struct {
	repo   repository.Repository
	hasher *security.Hasher
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService returns a UserService. A nil logger discards logs.
func NewUserService(repo repository.Repository, hasher *security.Hasher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger.Named("user_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a user. The email is trimmed and lowercased before it is checked and stored.
func (s *UserService) Create(ctx context.Context, name, email, password, byUserID string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storageErr("get user by email", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    byUserID,
		UpdatedBy:    byUserID,
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, s.storageErr("create user", err)
	}
	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("created_by", byUserID))
	return u, nil
}

// Get returns the user with id. Unknown or malformed ids yield ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storageErr("get user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Update replaces the user's name and role set. Every role in roleNames must exist;
// duplicates are collapsed and an empty list revokes all roles.
func (s *UserService) Update(ctx context.Context, id, name string, roleNames []string, byUserID string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolveRoles(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.Roles = roles
	u.UpdatedAt = s.now()
	u.UpdatedBy = byUserID
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.storageErr("update user", err)
	}
	s.logger.Info("user updated", zap.String("user_id", u.ID), zap.Int("roles", len(roles)), zap.String("updated_by", byUserID))
	return u, nil
}

// AddRole grants the role named roleName to the user and returns the updated user.
func (s *UserService) AddRole(ctx context.Context, userID, roleName string) (*domain.User, error) {
	if err := domain.ValidateRoleName(roleName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.GetRoleByName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return nil, s.storageErr("get role", err)
	}
	if role == nil {
		return nil, ErrUnknownRole
	}
	if u.HasRole(role.Name) {
		return u, nil
	}
	if err := s.repo.AddUserRole(ctx, u.ID, role.ID); err != nil {
		return nil, s.storageErr("add user role", err)
	}
	s.logger.Info("role granted", zap.String("user_id", u.ID), zap.String("role", role.Name))
	u.Roles = append(u.Roles, *role)
	return u, nil
}

// CreateRole creates a role named name.
func (s *UserService) CreateRole(ctx context.Context, name, byUserID string) (*domain.Role, error) {
	if err := domain.ValidateRoleName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	now := s.now()
	role := &domain.Role{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: byUserID,
		UpdatedBy: byUserID,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicateRole) {
			return nil, ErrRoleAlreadyExists
		}
		return nil, s.storageErr("create role", err)
	}
	return role, nil
}

// UpdateRole renames the role with id. Unknown or malformed ids yield ErrRoleNotFound.
func (s *UserService) UpdateRole(ctx context.Context, id, name, byUserID string) (*domain.Role, error) {
	if err := domain.ValidateRoleName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRoleNotFound
	}
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, s.storageErr("get role", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	old := role.Name
	role.Name = strings.TrimSpace(name)
	role.UpdatedAt = s.now()
	role.UpdatedBy = byUserID
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRole):
			return nil, ErrRoleAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		}
		return nil, s.storageErr("update role", err)
	}
	s.logger.Info("role renamed", zap.String("role_id", role.ID), zap.String("from", old), zap.String("to", role.Name))
	return role, nil
}

// ListRoles returns every role.
func (s *UserService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, s.storageErr("list roles", err)
	}
	return roles, nil
}

func (s *UserService) resolveRoles(ctx context.Context, names []string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if err := domain.ValidateRoleName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		role, err := s.repo.GetRoleByName(ctx, strings.TrimSpace(name))
		if err != nil {
			return nil, s.storageErr("get role", err)
		}
		if role == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, strings.TrimSpace(name))
		}
		if seen[role.ID] {
			continue
		}
		seen[role.ID] = true
		roles = append(roles, *role)
	}
	return roles, nil
}

func (s *UserService) storageErr(op string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
