package database

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clubhouse/internal/config"
	"clubhouse/pkg/utils"
)

func Connect(c *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		dialector = postgres.Open(c.DatabaseURL)
	} else {
		dialector = sqlite.Open(c.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.SetupJoinTable(&User{}, "Roles", &UserRole{}); err != nil {
		return nil, err
	}

	log.Debug("GORM connected to database")

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Role{},
		&UserRole{},
		&Session{},
		&ResetKey{},
		&VerificationKey{},
	)
}

// Seed guarantees the administrator role and the bootstrap admin
// account exist so a fresh database is immediately usable.
func Seed(db *gorm.DB) error {
	var adminRole Role
	err := db.Where("name = ?", "administrator").First(&adminRole).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		adminRole = Role{Name: "administrator", Description: "Top admin"}
		if err := db.Create(&adminRole).Error; err != nil {
			return err
		}
	}

	var admin User
	err = db.Where("email = ?", "admin@example.com").First(&admin).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		admin = User{
			Email:        "admin@example.com",
			PasswordHash: utils.HashPassword("iamsuperadmin"),
			Title:        "Exemplar",
			IsActive:     true,
			IsVerified:   true,
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
		log.Info("Seeded admin account admin@example.com")
	}

	var link UserRole
	err = db.Where("user_id = ? AND role_id = ?", admin.ID, adminRole.ID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = UserRole{ID: uuid.New(), UserID: admin.ID, RoleID: adminRole.ID}
		err = db.Create(&link).Error
	}
	if err != nil {
		return err
	}

	return db.Where("expires_at < ?", time.Now()).Delete(&Session{}).Error
}
