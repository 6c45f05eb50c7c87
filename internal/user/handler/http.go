package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mini-iam/backend/internal/server/middleware"
	"mini-iam/backend/internal/server/response"
	"mini-iam/backend/internal/user/domain"
	"mini-iam/backend/internal/user/service"
)

// UserService is the subset of service.UserService used by the HTTP handler.
type UserService interface {
	Create(ctx context.Context, name, email, password, byUserID string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id, name string, roleNames []string, byUserID string) (*domain.User, error)
	AddRole(ctx context.Context, userID, roleName string) (*domain.User, error)
	CreateRole(ctx context.Context, name, byUserID string) (*domain.Role, error)
	UpdateRole(ctx context.Context, id, name, byUserID string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

// UserHandler serves /users and /roles. All routes expect an authenticated caller.
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler returns a UserHandler. A nil logger discards logs.
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{users: users, logger: logger.Named("user_handler")}
}

// Register mounts the user and role routes on r. r must already require authentication.
func (h *UserHandler) Register(r gin.IRouter) {
	users := r.Group("/users")
	users.GET("/me", h.Me)
	users.POST("", h.Create)
	users.GET("/:id", h.Get)
	users.PUT("/:id", h.Update)
	users.POST("/:id/roles", h.AddRole)

	roles := r.Group("/roles")
	roles.GET("", h.ListRoles)
	roles.POST("", h.CreateRole)
	roles.PUT("/:id", h.UpdateRole)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateUserRequest replaces the name and the full role set; roles must be present, [] clears them.
type updateUserRequest struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles" binding:"required"`
}

type addRoleRequest struct {
	Role string `json:"role"`
}

type roleNameRequest struct {
	Name string `json:"name"`
}

type roleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Roles     []roleResponse `json:"roles"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c.Request.Context())
	if !ok {
		response.Unauthorized(c)
		return
	}
	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// Create handles POST /users.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	byUserID, _ := middleware.GetUserID(c.Request.Context())
	u, err := h.users.Create(c.Request.Context(), req.Name, req.Email, req.Password, byUserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Location", "/users/"+u.ID)
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// Update handles PUT /users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	byUserID, _ := middleware.GetUserID(c.Request.Context())
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), req.Name, req.Roles, byUserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// AddRole handles POST /users/:id/roles.
func (h *UserHandler) AddRole(c *gin.Context) {
	var req addRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	u, err := h.users.AddRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// ListRoles handles GET /roles.
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.users.ListRoles(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{ID: r.ID, Name: r.Name})
	}
	c.JSON(http.StatusOK, out)
}

// CreateRole handles POST /roles.
func (h *UserHandler) CreateRole(c *gin.Context) {
	var req roleNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	byUserID, _ := middleware.GetUserID(c.Request.Context())
	role, err := h.users.CreateRole(c.Request.Context(), req.Name, byUserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Location", "/roles/"+role.ID)
	c.JSON(http.StatusCreated, roleResponse{ID: role.ID, Name: role.Name})
}

// UpdateRole handles PUT /roles/:id.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req roleNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	byUserID, _ := middleware.GetUserID(c.Request.Context())
	role, err := h.users.UpdateRole(c.Request.Context(), c.Param("id"), req.Name, byUserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roleResponse{ID: role.ID, Name: role.Name})
}

func (h *UserHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUnknownRole):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "user not found")
	case errors.Is(err, service.ErrRoleNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "role not found")
	case errors.Is(err, service.ErrEmailAlreadyRegistered), errors.Is(err, service.ErrRoleAlreadyExists):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		response.Internal(c)
	}
}

func toUserResponse(u *domain.User) userResponse {
	roles := make([]roleResponse, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, roleResponse{ID: r.ID, Name: r.Name})
	}
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
