package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clubhouse/internal/database"
	"clubhouse/pkg/utils"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRoleNotFound   = errors.New("role not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const maxAccessFailedCount = 5

type UserService struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Create(user *database.User) error {
	user.Email = NormalizeEmail(user.Email)

	var count int64
	s.db.Model(&database.User{}).Where("email = ?", user.Email).Count(&count)
	if count > 0 {
		return ErrDuplicateEmail
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*database.User, error) {
	var user database.User
	result := s.db.Preload("Roles").First(&user, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) GetUserByEmail(email string) (*database.User, error) {
	var user database.User
	result := s.db.Preload("Roles").First(&user, "email = ?", NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) GetAllUsers(limit, offset int) ([]database.User, error) {
	var users []database.User
	result := s.db.Preload("Roles").Limit(limit).Offset(offset).Find(&users)
	return users, result.Error
}

func (s *UserService) Update(user *database.User) error {
	return s.db.Save(user).Error
}

// RecordLogin applies the post-login bookkeeping in a single atomic
// statement so concurrent logins never lose an increment.
func (s *UserService) RecordLogin(userID uuid.UUID) error {
	return s.db.Exec("UPDATE users SET access_failed_count = 0, login_count = login_count + 1, last_login = CURRENT_TIMESTAMP WHERE id = ?", userID).Error
}

func (s *UserService) IncrementAccessFailedCount(user *database.User) {
	s.db.Exec("UPDATE users SET access_failed_count = access_failed_count + 1 WHERE id = ?", user.ID)
}

func (s *UserService) IsLocked(user *database.User) bool {
	return user.AccessFailedCount >= maxAccessFailedCount
}

// UpdatePassword re-hashes, clears the lockout counter and invalidates
// any outstanding reset keys, so a reset always recovers a locked
// account.
func (s *UserService) UpdatePassword(user *database.User, password string) error {
	hash := utils.HashPassword(password)

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&database.User{}).Where("id = ?", user.ID).
			Updates(map[string]any{"password_hash": hash, "access_failed_count": 0}).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ?", user.ID).Delete(&database.ResetKey{}).Error
	})
}

func (s *UserService) Verify(user *database.User) error {
	return s.db.Model(&database.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"is_verified": true, "is_active": true}).Error
}

func (s *UserService) GetRoleByName(name string) (*database.Role, error) {
	var role database.Role
	result := s.db.First(&role, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}
	return &role, nil
}

// AssignRole is idempotent; assigning a role twice is a no-op.
func (s *UserService) AssignRole(user *database.User, role *database.Role) error {
	var count int64
	result := s.db.Model(&database.UserRole{}).
		Where("user_id = ? AND role_id = ?", user.ID, role.ID).Count(&count)
	if result.Error != nil {
		return result.Error
	}
	if count > 0 {
		return nil
	}

	link := database.UserRole{UserID: user.ID, RoleID: role.ID}
	if err := s.db.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// RevokeRole is idempotent; revoking an absent assignment is a no-op.
func (s *UserService) RevokeRole(user *database.User, role *database.Role) error {
	return s.db.Where("user_id = ? AND role_id = ?", user.ID, role.ID).
		Delete(&database.UserRole{}).Error
}

// ListRoles reads the live role set through the join table.
func (s *UserService) ListRoles(user *database.User) ([]database.Role, error) {
	var roles []database.Role
	result := s.db.
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", user.ID).
		Find(&roles)
	return roles, result.Error
}
