package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clubhouse/internal/database"
)

func HomePage(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{})
}

func LoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{})
}

func TopSecretPage(c *fiber.Ctx) error {
	user := c.Locals("user").(database.User)

	return c.Render("secret", fiber.Map{
		"Email": user.Email,
		"Title": user.Title,
	})
}
