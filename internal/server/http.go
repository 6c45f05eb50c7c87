package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	healthhandler "mini-iam/backend/internal/health/handler"
	identityhandler "mini-iam/backend/internal/identity/handler"
	"mini-iam/backend/internal/server/middleware"
	"mini-iam/backend/internal/server/response"
	userhandler "mini-iam/backend/internal/user/handler"
)

// Deps holds the handlers and services the HTTP router serves.
type Deps struct {
	// Auth serves /auth/*. Required.
	Auth *identityhandler.AuthHandler
	// Authenticator validates bearer tokens for protected routes. Required when Users is set.
	Authenticator middleware.Authenticator
	// Users serves /users and /roles behind the bearer middleware. If nil, those routes are not mounted.
	Users *userhandler.UserHandler
	// Health serves /health. If nil, those routes are not mounted.
	Health *healthhandler.Checker
	// Logger is used by the request logging and recovery middleware.
	Logger *zap.Logger
}

// NewRouter returns the gin engine serving the HTTP API.
//
// Route → handler mapping:
//   - /auth/*           → internal/identity/handler (public)
//   - /users, /roles    → internal/user/handler (bearer)
//   - /health/*         → internal/health/handler (public)
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
	})

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Auth != nil {
		deps.Auth.Register(r)
	}
	if deps.Users != nil && deps.Authenticator != nil {
		protected := r.Group("", middleware.RequireAuth(deps.Authenticator, logger))
		deps.Users.Register(protected)
	}
	return r
}
