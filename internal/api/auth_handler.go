package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/api/middleware"
	"bloghub.com/internal/auth"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
)

// AuthHandler 处理注册、登录、注销
type AuthHandler struct {
	users   domain.UserService
	tokens  *auth.TokenManager
	revoked domain.TokenStore
}

func NewAuthHandler(users domain.UserService, tokens *auth.TokenManager, revoked domain.TokenStore) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, revoked: revoked}
}

type LoginRequest struct {
	Username string `json:"Username" form:"username"`
	Password string `json:"Password" form:"password"`
}

type AuthResponse struct {
	Token     string      `json:"Token"`
	ExpiresAt int64       `json:"ExpiresAt"`
	User      *model.User `json:"User"`
}

// Register 自助注册, 角色固定为 USER
// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	in, err := bindUser(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"Message": "User registered successfully",
		"User":    user,
	})
}

// Login authenticates the user and returns a JWT.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return handleError(c, err)
	}

	token, claims, err := h.tokens.Issue(user)
	if err != nil {
		return handleError(c, domain.NewInternalError("failed to issue token", err))
	}

	slog.Info("user logged in", "component", "auth", "user_id", user.ID, "username", user.Username)
	return c.JSON(AuthResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
		User:      user,
	})
}

// Logout 注销当前令牌
// POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return handleError(c, domain.NewUnauthorizedError("not logged in"))
	}

	if err := h.revoked.Revoke(c.UserContext(), id.Claims.ID, h.tokens.Remaining(id.Claims)); err != nil {
		return handleError(c, domain.NewInternalError("failed to revoke token", err))
	}

	return c.JSON(fiber.Map{"Message": "Logged out"})
}

// Me 当前登录用户
// GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return handleError(c, domain.NewUnauthorizedError("not logged in"))
	}
	return c.JSON(user)
}
