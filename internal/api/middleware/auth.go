package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/auth"
	"bloghub.com/internal/constants"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
)

// UserLoader resolves the account behind a token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

// Identity is the acting user of an authenticated request.
type Identity struct {
	User   *model.User
	Claims *auth.Claims
}

// Token returns the raw bearer token, or "" when the header is missing or malformed.
func Token(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Authenticate checks the JWT, its revocation status and the casbin policy for
// the request path, then stores the Identity in c.Locals.
func Authenticate(
	tokens *auth.TokenManager,
	revoked domain.TokenStore,
	users UserLoader,
	enforcer *casbin.Enforcer,
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Extract Token
		raw := Token(c)
		if raw == "" {
			return unauthorized(c, "Missing Authorization header")
		}

		// 2. Parse Token
		claims, err := tokens.Parse(raw)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		isRevoked, err := revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			slog.Error("revocation check failed", "component", "auth", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Authentication check failed"})
		}
		if isRevoked {
			return unauthorized(c, "Token has been revoked")
		}

		// 3. 以数据库中的角色为准, 已删除的账户令牌失效
		user, err := users.GetUserByID(c.UserContext(), claims.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return unauthorized(c, "Account no longer exists")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Authentication check failed"})
		}

		// 4. Check Permission
		sub := string(user.Role)
		obj := c.Path()
		act := c.Method()

		permit, err := enforcer.Enforce(sub, obj, act)
		if err != nil {
			slog.Error("casbin enforce failed", "component", "auth", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Permission check failed"})
		}
		if !permit {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"Error": "Permission denied"})
		}

		c.Locals(constants.LocalsIdentity, &Identity{User: user, Claims: claims})
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Authenticate, or nil.
func CurrentIdentity(c *fiber.Ctx) *Identity {
	id, _ := c.Locals(constants.LocalsIdentity).(*Identity)
	return id
}

// CurrentUser returns the acting user, or nil on unauthenticated routes.
func CurrentUser(c *fiber.Ctx) *model.User {
	if id := CurrentIdentity(c); id != nil {
		return id.User
	}
	return nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="bloghub"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": msg})
}
