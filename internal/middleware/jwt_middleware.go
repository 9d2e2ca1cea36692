package middleware

import (
	"strings"

	"feedstream/internal/apperror"
	"feedstream/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware that validates the bearer token
// on every protected request and stores the resolved user id in the
// request context under "userId".
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperror.Unauthorized("Not authenticated!")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperror.Unauthorized("Not authenticated!")
		}

		userID, err := authService.ValidateToken(parts[1])
		if err != nil {
			return err
		}

		c.Locals("userId", userID)
		return c.Next()
	}
}

// UserID extracts the authenticated user id the guard stored on the
// request context.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userId").(string); ok {
		return id
	}
	return ""
}
