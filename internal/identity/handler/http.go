package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mini-iam/backend/internal/identity/service"
	"mini-iam/backend/internal/server/middleware"
	"mini-iam/backend/internal/server/response"
)

// AuthService is the subset of service.AuthService used by the HTTP handler.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	Logout(ctx context.Context, accessToken string) (time.Time, error)
}

// AuthHandler serves /auth/login, /auth/refresh and /auth/logout.
type AuthHandler struct {
	auth   AuthService
	logger *zap.Logger
}

// NewAuthHandler returns an AuthHandler. A nil logger discards logs.
func NewAuthHandler(auth AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger.Named("auth_handler")}
}

// Register mounts the auth routes on r.
func (h *AuthHandler) Register(r gin.IRouter) {
	g := r.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type logoutResponse struct {
	LoggedOutAt time.Time `json:"loggedOutAt"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(res))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(res))
}

// Logout handles POST /auth/logout. The access token comes from the Authorization header.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		response.Unauthorized(c)
		return
	}
	at, err := h.auth.Logout(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, logoutResponse{LoggedOutAt: at})
}

// writeError maps auth service errors to HTTP responses. Server-side failures are logged and
// answered with a generic 500; every rejection is a 401.
func (h *AuthHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionExpired):
		response.Error(c, http.StatusUnauthorized, response.CodeSessionExpired, "session expired")
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrInvalidOrExpiredToken),
		errors.Is(err, service.ErrSessionInactive),
		errors.Is(err, service.ErrSessionNotFound):
		response.Unauthorized(c)
	default:
		h.logger.Error(op+" failed",
			zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		response.Internal(c)
	}
}

func toTokenResponse(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.UTC(),
	}
}
