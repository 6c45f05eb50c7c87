package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mini-iam/backend/internal/security"
	"mini-iam/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, started_at, access_token_hash, refresh_token_hash,
	last_refreshed_at, is_active, deactivated_at`

// PostgresRepository persists sessions in Postgres. Tokens are stored only as SHA-256 digests.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

// FindSessionByAccessToken returns the session whose access slot holds token, or nil if not found.
// The token is hashed before lookup; an empty token matches nothing.
func (r *PostgresRepository) FindSessionByAccessToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token_hash = $1`, security.HashToken(token))
}

// FindSessionByRefreshToken returns the session whose refresh slot holds token, or nil if not found.
func (r *PostgresRepository) FindSessionByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, security.HashToken(token))
}

// CreateSession inserts s in a single statement. s.ID must be set.
func (r *PostgresRepository) CreateSession(ctx context.Context, s *domain.Session, accessToken, refreshToken string) error {
	s.AccessTokenHash = security.HashToken(accessToken)
	s.RefreshTokenHash = security.HashToken(refreshToken)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.StartedAt, s.AccessTokenHash, s.RefreshTokenHash,
		s.LastRefreshedAt, s.IsActive, timeToNullTime(s.DeactivatedAt),
	)
	return err
}

// UpdateSessionTokens swaps both token slots and sets last_refreshed_at, but only while the session is
// active and still holds presentedRefresh. It reports false when another rotation won the race.
func (r *PostgresRepository) UpdateSessionTokens(ctx context.Context, id, presentedRefresh, accessToken, refreshToken string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET access_token_hash = $3, refresh_token_hash = $4, last_refreshed_at = $5
		WHERE id = $1 AND is_active AND refresh_token_hash = $2`,
		id, security.HashToken(presentedRefresh), security.HashToken(accessToken), security.HashToken(refreshToken), at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeactivateSession marks the session inactive at at. Deactivating an inactive or unknown session is a no-op.
func (r *PostgresRepository) DeactivateSession(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET is_active = FALSE, deactivated_at = $2
		WHERE id = $1 AND is_active`,
		id, at,
	)
	return err
}

// FindExpiredSessionsForUser returns the user's active sessions idle for longer than window, oldest first.
func (r *PostgresRepository) FindExpiredSessionsForUser(ctx context.Context, userID string, window time.Duration, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND is_active AND last_refreshed_at < $2
		ORDER BY last_refreshed_at`,
		userID, now.Add(-window),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s           domain.Session
		deactivated sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartedAt,
		&s.AccessTokenHash,
		&s.RefreshTokenHash,
		&s.LastRefreshedAt,
		&s.IsActive,
		&deactivated,
	); err != nil {
		return nil, err
	}
	s.StartedAt = s.StartedAt.UTC()
	s.LastRefreshedAt = s.LastRefreshedAt.UTC()
	s.DeactivatedAt = nullTimeToPtr(deactivated)
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
