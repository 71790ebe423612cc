package middleware

import (
	"strings"

	"whisperwall/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier func(token string) (string, error)

// AdminRequired rejects requests that do not carry a valid admin bearer token.
func AdminRequired(verify TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		subject, err := verify(parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		c.Locals("adminSubject", subject)
		return c.Next()
	}
}
