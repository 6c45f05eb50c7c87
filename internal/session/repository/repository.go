package repository

import (
	"context"
	"time"

	"mini-iam/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Token arguments are raw tokens;
// implementations store and match their SHA-256 digests.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindSessionByAccessToken returns the session whose access slot holds token, or nil if none.
	FindSessionByAccessToken(ctx context.Context, token string) (*domain.Session, error)
	// FindSessionByRefreshToken returns the session whose refresh slot holds token, or nil if none.
	FindSessionByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	// CreateSession persists s with its token slots set from accessToken and refreshToken.
	CreateSession(ctx context.Context, s *domain.Session, accessToken, refreshToken string) error
	// UpdateSessionTokens replaces both token slots and sets LastRefreshedAt, but only if the session
	// is still active and still holds presentedRefresh. Returns false when that condition no longer holds.
	UpdateSessionTokens(ctx context.Context, id, presentedRefresh, accessToken, refreshToken string, at time.Time) (bool, error)
	// DeactivateSession marks the session inactive. Already inactive or missing sessions are a no-op.
	DeactivateSession(ctx context.Context, id string, at time.Time) error
	// FindExpiredSessionsForUser returns active sessions of userID whose last refresh is older than window.
	FindExpiredSessionsForUser(ctx context.Context, userID string, window time.Duration, now time.Time) ([]*domain.Session, error)
}
