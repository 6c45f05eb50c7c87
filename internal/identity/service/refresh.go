package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mini-iam/backend/internal/security"
	"mini-iam/backend/internal/telemetry"
)

// Refresh rotates the session holding refreshToken: both tokens are replaced and the idle window restarts.
// A refresh token works once. A session idle for longer than the window is deactivated and
// ErrSessionExpired is returned; an inactive session yields ErrSessionInactive.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer func() { s.finish(ctx, span, "refresh", err) }()

	if refreshToken == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	sess, err := s.sessions.FindSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Error("find session by refresh token failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if sess == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("user.id", sess.UserID))
	if !sess.IsActive {
		return nil, ErrSessionInactive
	}

	now := s.now()
	if now.Before(sess.LastRefreshedAt) {
		now = sess.LastRefreshedAt
	}
	if sess.IsExpired(now, s.idleTimeout) {
		if err := s.sessions.DeactivateSession(ctx, sess.ID, now); err != nil {
			s.logger.Error("deactivate expired session failed", zap.String("session_id", sess.ID), zap.Error(err))
			return nil, storageErr(err)
		}
		s.logger.Info("session expired", zap.String("user_id", sess.UserID), zap.String("session_id", sess.ID),
			zap.Time("last_refreshed_at", sess.LastRefreshedAt))
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventSessionExpired, UserID: sess.UserID, SessionID: sess.ID})
		return nil, ErrSessionExpired
	}

	newRefresh, err := security.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	accessToken, expiresAt, err := s.issue(sess.UserID, sess.ID)
	if err != nil {
		return nil, err
	}
	rotated, err := s.sessions.UpdateSessionTokens(ctx, sess.ID, refreshToken, accessToken, newRefresh, now)
	if err != nil {
		s.logger.Error("rotate session tokens failed", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, storageErr(err)
	}
	if !rotated {
		// Another refresh or a logout won the race for this token.
		s.logger.Info("refresh lost rotation race", zap.String("session_id", sess.ID))
		return nil, ErrInvalidOrExpiredToken
	}
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventRefresh, UserID: sess.UserID, SessionID: sess.ID})
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
		UserID:       sess.UserID,
		SessionID:    sess.ID,
	}, nil
}
