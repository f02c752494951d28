package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"gorm.io/gorm"

	"clubhouse/internal/config"
	"clubhouse/internal/handlers"
	mngmt "clubhouse/internal/handlers/management"
	"clubhouse/internal/mail"
	"clubhouse/internal/middleware"
	psession "clubhouse/internal/platform/session"
)

//go:embed views/*.html
var viewsFS embed.FS

//go:embed public/*
var publicFS embed.FS

// isAPIRoute decides the route class for the error policy: API routes
// get JSON statuses, page routes get redirects and rendered pages.
func isAPIRoute(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api")
}

// errorHandler is the single place auth failures and faults become
// responses. Unauthorized and forbidden page requests both turn into
// the same login redirect so the client cannot tell a missing session
// from an insufficient role. Internal detail is only ever logged.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	switch code {
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		if !isAPIRoute(c) {
			log.Warnf("%d on %s: redirecting to login", code, c.Path())
			return c.Redirect("/login", fiber.StatusFound)
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}

	if code >= fiber.StatusInternalServerError {
		log.Errorf("unhandled fault on %s %s: %v", c.Method(), c.Path(), err)
		if isAPIRoute(c) {
			return c.Status(code).JSON(fiber.Map{"message": "Internal server error"})
		}
		return c.Status(code).Render("error", fiber.Map{})
	}

	if isAPIRoute(c) {
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
	return c.Status(code).SendString(message)
}

func New(cfg *config.Config, db *gorm.DB, mailer mail.Mailer) *fiber.App {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(views), ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: errorHandler,
	})

	app.Use(compress.New())
	app.Use(helmet.New())
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(healthcheck.New())

	sessionService := psession.NewService(db, time.Duration(cfg.SessionLife)*time.Second)

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("db", db)
		c.Locals("sessions", sessionService)
		c.Locals("mailer", mailer)
		return c.Next()
	})

	// Login and logout are guarded by the credential check itself;
	// static assets are read-only. Everything else state-changing
	// requires the double-submit token.
	app.Use(csrf.New(csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			switch c.Path() {
			case "/api/login", "/api/logout":
				return true
			}
			return strings.HasPrefix(c.Path(), "/public")
		},
		CookieSameSite: fiber.CookieSameSiteStrictMode,
		CookieSecure:   cfg.SecureCookies,
	}))

	app.Use(middleware.Auth)

	publicAssets, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}
	app.Use("/public", filesystem.New(filesystem.Config{
		Root: http.FS(publicAssets),
	}))

	app.Get("/", handlers.HomePage)
	app.Get("/login", handlers.LoginPage)
	app.Get("/top-secret", middleware.RequireAnyRole, handlers.TopSecretPage)

	api := app.Group("/api")
	api.Post("/register", handlers.Register)
	api.Post("/login", handlers.Login)
	api.Post("/logout", handlers.Logout)
	api.Post("/forgot-password", handlers.ForgotPassword)
	api.Post("/reset-password", handlers.ResetPassword)
	api.Post("/verify", handlers.VerifyEmail)

	users := api.Group("/users")
	users.Get("/me", middleware.RequireAuthenticated, handlers.GetCurrentUser)
	users.Put("/me", middleware.RequireAuthenticated, handlers.UpdateCurrentUser)
	users.Get("/", middleware.RequireAllOf("administrator"), mngmt.GetAllUsers)
	users.Get("/:user_id", middleware.RequireAllOf("administrator"), mngmt.GetUser)
	users.Put("/:user_id", middleware.RequireAllOf("administrator"), mngmt.UpdateUser)
	users.Post("/:user_id/roles/:role_name", middleware.RequireAllOf("administrator"), mngmt.AssignRole)
	users.Delete("/:user_id/roles/:role_name", middleware.RequireAllOf("administrator"), mngmt.RevokeRole)

	roles := api.Group("/roles", middleware.RequireAnyOf("administrator"))
	roles.Get("/", mngmt.GetAllRoles)
	roles.Post("/", mngmt.CreateRole)
	roles.Get("/:role_id", mngmt.GetRole)
	roles.Put("/:role_id", mngmt.UpdateRole)

	app.Use(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	return app
}
