package middleware

import (
	"context"
	"strings"

	"simon-says-server/logger"
	"simon-says-server/models"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID = "user_id"
	LocalUser   = "user"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// tokenFrom reads "Authorization: Bearer <t>" or, failing that, x-auth-token.
func tokenFrom(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	return strings.TrimSpace(c.Get("x-auth-token"))
}

// RequireAuth rejects the request with 401 unless it carries a valid token
// for an existing user.
func RequireAuth(auth Authenticator, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No token, authorization denied",
			})
		}
		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			log.Debug("rejected token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token is not valid",
			})
		}
		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets the
// request through anonymously otherwise.
func OptionalAuth(auth Authenticator, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := tokenFrom(c); token != "" {
			user, err := auth.Authenticate(c.UserContext(), token)
			if err == nil {
				c.Locals(LocalUserID, user.ID)
				c.Locals(LocalUser, user)
			} else {
				log.Debug("ignoring invalid optional token", "path", c.Path(), "error", err)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}
