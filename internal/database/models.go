package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email             string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash      string     `json:"-" gorm:"not null"`
	Title             string     `json:"title" gorm:"size:20"`
	IsActive          bool       `json:"is_active" gorm:"default:false"`
	IsVerified        bool       `json:"is_verified" gorm:"default:false"`
	LoginCount        int        `json:"login_count" gorm:"default:0"`
	AccessFailedCount int        `json:"-" gorm:"default:0"`
	LastLogin         *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Roles             []Role     `json:"roles" gorm:"many2many:user_roles;"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Role struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// UserRole is the join table behind User.Roles. A (user, role) pair
// appears at most once.
type UserRole struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_role"`
	RoleID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_role"`
}

func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}
	return nil
}

type Session struct {
	Token     string    `json:"-" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	Revoked   bool      `json:"-" gorm:"default:false"`
}

type ResetKey struct {
	Key       uuid.UUID `json:"key" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerificationKey struct {
	Key       uuid.UUID `json:"key" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	ExpiresAt time.Time `json:"expires_at"`
}
