package middleware

import (
	"github.com/gofiber/fiber/v2"

	"clubhouse/internal/database"
)

// Guards return fiber.ErrUnauthorized or fiber.ErrForbidden and leave
// the response shape to the central error handler, so page and API
// routes stay uniform.

func currentUser(c *fiber.Ctx) (database.User, bool) {
	user, ok := c.Locals("user").(database.User)
	return user, ok
}

func roleSet(user database.User) map[string]struct{} {
	set := make(map[string]struct{}, len(user.Roles))
	for _, role := range user.Roles {
		set[role.Name] = struct{}{}
	}
	return set
}

func RequireAuthenticated(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return fiber.ErrUnauthorized
	}
	return c.Next()
}

// RequireAnyRole admits any authenticated user that holds at least one
// role.
func RequireAnyRole(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if len(user.Roles) == 0 {
		return fiber.ErrForbidden
	}
	return c.Next()
}

func RequireAnyOf(names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := currentUser(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		held := roleSet(user)
		for _, name := range names {
			if _, ok := held[name]; ok {
				return c.Next()
			}
		}
		return fiber.ErrForbidden
	}
}

func RequireAllOf(names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := currentUser(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		held := roleSet(user)
		for _, name := range names {
			if _, ok := held[name]; !ok {
				return fiber.ErrForbidden
			}
		}
		return c.Next()
	}
}
