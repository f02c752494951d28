package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/mail"
	"clubhouse/internal/middleware"
	psession "clubhouse/internal/platform/session"
	puser "clubhouse/internal/platform/user"
	"clubhouse/pkg/utils"
)

const (
	resetKeyExp        = time.Hour
	verificationKeyExp = 24 * time.Hour
)

func sessionCookie(cfg *config.Config, token string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	}
}

func Register(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	db := c.Locals("db").(*gorm.DB)
	mailer := c.Locals("mailer").(mail.Mailer)

	userService := puser.NewService(db)

	type RegisterInput struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Title    string `json:"title" validate:"max=20"`
	}

	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user := database.User{
		Email:        input.Email,
		PasswordHash: utils.HashPassword(input.Password),
		Title:        input.Title,
	}

	if err := userService.Create(&user); err != nil {
		if errors.Is(err, puser.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already registered"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	verificationKey := database.VerificationKey{
		Key:       uuid.New(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(verificationKeyExp),
	}
	if err := db.Create(&verificationKey).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	message := mail.Email{
		Subject: "Verify your Clubhouse account",
		Body:    fmt.Sprintf("Confirm your address with key %s or visit %s/login", verificationKey.Key, cfg.BaseURL),
		From:    cfg.MailFrom,
		To:      []string{user.Email},
	}
	if err := mailer.SendMail(&message); err != nil {
		log.Errorf("failed to send verification mail: %v", err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func Login(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	db := c.Locals("db").(*gorm.DB)
	sessionService := c.Locals("sessions").(*psession.SessionService)

	userService := puser.NewService(db)

	// The login form posts urlencoded, API clients post JSON.
	type LoginInput struct {
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// Unknown email, wrong password and locked accounts are deliberately
	// indistinguishable to the caller.
	invalidCredentials := func() error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
	}

	user, err := userService.GetUserByEmail(input.Email)
	if err != nil {
		if errors.Is(err, puser.ErrUserNotFound) {
			return invalidCredentials()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if user.PasswordHash == "" || !utils.VerifyPassword(input.Password, user.PasswordHash) {
		userService.IncrementAccessFailedCount(user)
		return invalidCredentials()
	}

	if userService.IsLocked(user) {
		return invalidCredentials()
	}

	if err := userService.RecordLogin(user.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	token, err := sessionService.Create(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	c.Cookie(sessionCookie(cfg, token, cfg.SessionLife))

	user, err = userService.GetUserByID(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(user)
}

// Logout is idempotent; a missing or stale cookie still yields 204.
func Logout(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	sessionService := c.Locals("sessions").(*psession.SessionService)

	if token := c.Cookies(middleware.SessionCookie); token != "" {
		if err := sessionService.Revoke(token); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
		}
	}

	c.Cookie(sessionCookie(cfg, "", -1))

	return c.SendStatus(fiber.StatusNoContent)
}

// ForgotPassword always answers 204 so the existence of an account is
// never revealed.
func ForgotPassword(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	db := c.Locals("db").(*gorm.DB)
	mailer := c.Locals("mailer").(mail.Mailer)

	userService := puser.NewService(db)

	type ForgotPasswordInput struct {
		Email string `json:"email" validate:"required,email"`
	}

	var input ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := userService.GetUserByEmail(input.Email)
	if err != nil {
		if errors.Is(err, puser.ErrUserNotFound) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	resetKey := database.ResetKey{
		Key:       uuid.New(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetKeyExp),
	}
	if err := db.Create(&resetKey).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	message := mail.Email{
		Subject: "Reset your Clubhouse password",
		Body:    fmt.Sprintf("Reset your password with key %s within the hour.", resetKey.Key),
		From:    cfg.MailFrom,
		To:      []string{user.Email},
	}
	if err := mailer.SendMail(&message); err != nil {
		log.Errorf("failed to send reset mail: %v", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func ResetPassword(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	userService := puser.NewService(db)

	type ResetPasswordInput struct {
		ResetKey    string `json:"reset_key" validate:"required,uuid"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}

	var input ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var resetKey database.ResetKey
	result := db.First(&resetKey, "key = ?", input.ResetKey)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if time.Now().After(resetKey.ExpiresAt) {
		db.Delete(&resetKey)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
	}

	user, err := userService.GetUserByID(resetKey.UserID)
	if err != nil {
		if errors.Is(err, puser.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	// UpdatePassword clears every reset key for the user, so the key is
	// single-use by construction.
	if err := userService.UpdatePassword(user, input.NewPassword); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func VerifyEmail(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	userService := puser.NewService(db)

	type VerifyInput struct {
		VerificationKey string `json:"verification_key" validate:"required,uuid"`
	}

	var input VerifyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var verificationKey database.VerificationKey
	result := db.First(&verificationKey, "key = ?", input.VerificationKey)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if time.Now().After(verificationKey.ExpiresAt) {
		db.Delete(&verificationKey)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
	}

	user, err := userService.GetUserByID(verificationKey.UserID)
	if err != nil {
		if errors.Is(err, puser.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired key"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if err := userService.Verify(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if err := db.Delete(&verificationKey).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
