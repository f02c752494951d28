package middleware

import (
	"github.com/gofiber/fiber/v2"

	psession "clubhouse/internal/platform/session"
)

const SessionCookie = "clubhouse_session"

// Auth resolves the session cookie into c.Locals("user"). It never
// rejects the request itself; the guards decide what an absent or
// insufficient identity means for a given route.
func Auth(c *fiber.Ctx) error {
	sessionService := c.Locals("sessions").(*psession.SessionService)

	user, err := sessionService.Resolve(c.Cookies(SessionCookie))
	if err != nil {
		return fiber.ErrInternalServerError
	}
	if user != nil {
		c.Locals("user", *user)
	}

	return c.Next()
}
