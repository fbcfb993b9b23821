package middleware

import (
	"log/slog"
	"strings"

	"dailyscrum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
				"error":   services.ErrUnauthorized.Error(),
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
				"error":   services.ErrUnauthorized.Error(),
			})
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			slog.Debug("JWT validation failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, claims.ID)
		c.Locals(LocalUsername, claims.Username)

		return c.Next()
	}
}

// Identity returns the caller stored by AuthRequired.
func Identity(c *fiber.Ctx) services.Identity {
	id, _ := c.Locals(LocalUserID).(string)
	username, _ := c.Locals(LocalUsername).(string)
	return services.Identity{ID: id, Username: username}
}
