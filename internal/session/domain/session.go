package domain

import "time"

// Session is a server-side login session. Token slots hold SHA-256 digests, never raw tokens.
type Session struct {
	ID               string
	UserID           string
	StartedAt        time.Time
	AccessTokenHash  string
	RefreshTokenHash string
	LastRefreshedAt  time.Time
	IsActive         bool
	DeactivatedAt    *time.Time // nil while active
}

// IsExpired reports whether more than window has passed since the last refresh.
// Exactly window is still valid.
func (s *Session) IsExpired(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastRefreshedAt) > window
}

// IdleDeadline returns the instant after which the session is expired.
func (s *Session) IdleDeadline(window time.Duration) time.Time {
	return s.LastRefreshedAt.Add(window)
}
