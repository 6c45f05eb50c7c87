package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mini-iam/backend/internal/identity/service"
	"mini-iam/backend/internal/server/response"
)

const bearerPrefix = "bearer "

// Authenticator resolves an access token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*service.Principal, error)
}

// RequireAuth returns middleware that validates the Bearer access token and stores
// user_id and session_id in the request context. Requests without a usable token get 401.
func RequireAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			return
		}
		p, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrStorageFailure) || errors.Is(err, service.ErrConfiguration) {
				logger.Error("authenticate request failed", zap.String("path", c.FullPath()), zap.Error(err))
				response.Internal(c)
				return
			}
			if errors.Is(err, service.ErrSessionExpired) {
				response.Error(c, http.StatusUnauthorized, response.CodeSessionExpired, "session expired")
				return
			}
			response.Unauthorized(c)
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), p.UserID, p.SessionID))
		c.Next()
	}
}

// BearerToken returns the token from an Authorization header value, or "" if missing or malformed.
// The scheme is matched case-insensitively.
func BearerToken(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
