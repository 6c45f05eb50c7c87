package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"mini-iam/backend/internal/user/domain"
)

const uniqueViolation = "23505"

const (
	userColumns = `id, name, email, password_hash, created_at, updated_at, created_by, updated_by`
	roleColumns = `id, name, created_at, updated_at, created_by, updated_by`
)

// PostgresRepository stores users, roles and grants in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id with its roles, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user with the given email (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
// Roles are not written; grant them with AddUserRole.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt, nullID(u.CreatedBy), nullID(u.UpdatedBy),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Update sets name, updated_at and updated_by and replaces the user's grants with u.Roles in one transaction.
// Returns ErrNotFound if the user does not exist.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE users SET name = $2, updated_at = $3, updated_by = $4
		WHERE id = $1`,
		u.ID, u.Name, u.UpdatedAt, nullID(u.UpdatedBy),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, u.ID); err != nil {
		return err
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, u.ID, role.ID); err != nil {
			return fmt.Errorf("grant role %s: %w", role.ID, err)
		}
	}
	return tx.Commit()
}

// GetRoleByID returns the role for id, or nil if not found.
func (r *PostgresRepository) GetRoleByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// GetRoleByName returns the role with the given name (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE lower(name) = lower($1)`, name)
}

// CreateRole persists role. Names are unique case-insensitively; a taken name yields ErrDuplicateRole.
func (r *PostgresRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (`+roleColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		role.ID, role.Name, role.CreatedAt, role.UpdatedAt, nullID(role.CreatedBy), nullID(role.UpdatedBy),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateRole
	}
	return err
}

// UpdateRole renames the role and records who changed it.
// Returns ErrNotFound if the role does not exist and ErrDuplicateRole if the new name is taken.
func (r *PostgresRepository) UpdateRole(ctx context.Context, role *domain.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE roles SET name = $2, updated_at = $3, updated_by = $4
		WHERE id = $1`,
		role.ID, role.Name, role.UpdatedAt, nullID(role.UpdatedBy),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateRole
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRoles returns all roles ordered by name.
func (r *PostgresRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// AddUserRole grants roleID to userID; an existing grant is left as is.
func (r *PostgresRepository) AddUserRole(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u                    domain.User
		createdBy, updatedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &createdBy, &updatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedBy, u.UpdatedBy = createdBy.String, updatedBy.String
	roles, err := r.rolesFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *PostgresRepository) rolesFor(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at, r.updated_at, r.created_by, r.updated_by
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

func (r *PostgresRepository) findRole(ctx context.Context, query string, arg any) (*domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*domain.Role, error) {
	var (
		role                 domain.Role
		createdBy, updatedBy sql.NullString
	)
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &createdBy, &updatedBy); err != nil {
		return nil, err
	}
	role.CreatedBy, role.UpdatedBy = createdBy.String, updatedBy.String
	return &role, nil
}

func collectRoles(rows *sql.Rows) ([]domain.Role, error) {
	defer rows.Close()
	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// nullID stores "" as NULL so rows written without a caller have no author.
func nullID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
