package session

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"clubhouse/internal/database"
	"clubhouse/pkg/utils"
)

const tokenLength = 40

type SessionService struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewService(db *gorm.DB, ttl time.Duration) *SessionService {
	return &SessionService{db: db, ttl: ttl}
}

// Create opens a fresh session for the user and returns its opaque
// token. The token carries no identity; it is only a key into the
// session table.
func (s *SessionService) Create(user *database.User) (string, error) {
	sess := database.Session{
		Token:     fmt.Sprintf("chs%s", utils.GenerateSecureToken(tokenLength)),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	if err := s.db.Create(&sess).Error; err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Resolve maps a token to its user, with roles preloaded. Unknown,
// expired, and revoked tokens all resolve to nil without error; expiry
// is evaluated lazily here rather than by a background sweep.
func (s *SessionService) Resolve(token string) (*database.User, error) {
	if token == "" {
		return nil, nil
	}

	var sess database.Session
	result := s.db.First(&sess, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	if sess.Revoked || time.Now().After(sess.ExpiresAt) {
		return nil, nil
	}

	var user database.User
	result = s.db.Preload("Roles").First(&user, "id = ?", sess.UserID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &user, nil
}

// Revoke ends a session; revoking an unknown or already revoked token
// is a no-op.
func (s *SessionService) Revoke(token string) error {
	return s.db.Model(&database.Session{}).Where("token = ?", token).
		Update("revoked", true).Error
}
