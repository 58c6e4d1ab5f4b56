package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UsernameKey is the fiber local holding the authenticated username.
const UsernameKey = "username"

// RequireToken rejects requests without a valid "Bearer <token>" header
// and stores the token's username for downstream handlers.
func RequireToken(tokens TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization token is missing")
		}
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization must be a bearer token")
		}

		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(UsernameKey, claims.Username)
		return c.Next()
	}
}
