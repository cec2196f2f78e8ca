package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/admitgate/admitgate-api/internal/session"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// JWTProtected validates bearer session tokens and exposes the authenticated
// subject via Locals("user_id") and Locals("user_role").
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := session.Parse(tokenString, secret)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, session.ErrTokenExpired) {
				message = "token expired"
			}
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", string(claims.Role))

		return c.Next()
	}
}
