// middleware/stream_auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/Lyzus243/Studyrpg2/services"

	"github.com/gofiber/fiber/v2"
)

// StreamAuthMiddleware validates the `token` query param for streaming
// endpoints (websocket battle streams, SSE grant streams). Browsers cannot set
// headers on these connections, so identity arrives in the query string and is
// validated against the auth service before the upgrade.
//
// Usage:
//
//	app.Get("/battles/:id/stream", middleware.StreamAuthMiddleware(authClient), ...)
func StreamAuthMiddleware(authClient services.TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			log.Printf("[StreamAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[StreamAuth] ❌ Validation failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("username", resp.Username)

		return c.Next()
	}
}
