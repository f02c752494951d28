package mngmt

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
)

func GetAllRoles(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	var roles []database.Role
	result := db.Find(&roles)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(roles)
}

func GetRole(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	rid, err := uuid.Parse(c.Params("role_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid role ID"})
	}

	var role database.Role
	result := db.First(&role, "id = ?", rid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Role not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(role)
}

func CreateRole(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	type RoleInput struct {
		Name        string `json:"name" validate:"required,min=2,max=40"`
		Description string `json:"description"`
	}

	var input RoleInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var count int64
	db.Model(&database.Role{}).Where("name = ?", input.Name).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Role already exists"})
	}

	role := database.Role{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := db.Create(&role).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

func UpdateRole(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	type RoleUpdateInput struct {
		Name        *string `json:"name" validate:"omitempty,min=2,max=40"`
		Description *string `json:"description"`
	}

	var input RoleUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	rid, err := uuid.Parse(c.Params("role_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid role ID"})
	}

	var role database.Role
	result := db.First(&role, "id = ?", rid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Role not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	if input.Name != nil {
		role.Name = *input.Name
	}
	if input.Description != nil {
		role.Description = *input.Description
	}

	if err := db.Save(&role).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(role)
}
