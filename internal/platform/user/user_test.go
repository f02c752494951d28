package user

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/pkg/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Connect(&config.Config{DatabaseURL: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	return db
}

func newTestUser(t *testing.T, s *UserService, email string) *database.User {
	t.Helper()

	user := database.User{
		Email:        email,
		PasswordHash: utils.HashPassword("pw123456"),
		Title:        "Engineer",
	}
	require.NoError(t, s.Create(&user))

	return &user
}

func TestCreateAndGetUserByEmail(t *testing.T) {
	s := NewService(newTestDB(t))

	user := database.User{
		Email:        "Alice@Example.com ",
		PasswordHash: utils.HashPassword("pw123456"),
		Title:        "Engineer",
	}
	require.NoError(t, s.Create(&user))

	found, err := s.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.NotEqual(t, "pw123456", found.PasswordHash)
	assert.True(t, utils.VerifyPassword("pw123456", found.PasswordHash))
	assert.False(t, found.IsActive)
	assert.False(t, found.IsVerified)
}

func TestCreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	newTestUser(t, s, "alice@example.com")

	second := database.User{
		Email:        "ALICE@example.com",
		PasswordHash: utils.HashPassword("otherpass"),
	}
	err := s.Create(&second)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	// The failed attempt must not change state.
	users, err := s.GetAllUsers(10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// A write racing past the pre-check hits the unique index instead;
	// the driver error must translate so Create can map it to 409.
	raw := database.User{Email: "alice@example.com", PasswordHash: "x"}
	err = db.Create(&raw).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestGetUserByIDNotFound(t *testing.T) {
	s := NewService(newTestDB(t))

	_, err := s.GetUserByID(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAssignAndRevokeRoleIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")

	role := database.Role{Name: "administrator", Description: "Top admin"}
	require.NoError(t, db.Create(&role).Error)

	require.NoError(t, s.AssignRole(user, &role))
	require.NoError(t, s.AssignRole(user, &role))

	roles, err := s.ListRoles(user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "administrator", roles[0].Name)

	var count int64
	db.Model(&database.UserRole{}).Count(&count)
	assert.EqualValues(t, 1, count)

	require.NoError(t, s.RevokeRole(user, &role))
	require.NoError(t, s.RevokeRole(user, &role))

	roles, err = s.ListRoles(user)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestListRolesIsLiveSet(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")

	admin := database.Role{Name: "administrator"}
	auditor := database.Role{Name: "auditor"}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&auditor).Error)

	require.NoError(t, s.AssignRole(user, &admin))
	require.NoError(t, s.AssignRole(user, &auditor))
	require.NoError(t, s.RevokeRole(user, &admin))

	roles, err := s.ListRoles(user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "auditor", roles[0].Name)

	// Preload reads through the same join table.
	found, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Len(t, found.Roles, 1)
	assert.Equal(t, "auditor", found.Roles[0].Name)
}

func TestRecordLoginConcurrent(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")

	const logins = 10

	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RecordLogin(user.ID))
		}()
	}
	wg.Wait()

	found, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, logins, found.LoginCount)
	assert.Equal(t, 0, found.AccessFailedCount)
	assert.NotNil(t, found.LastLogin)
}

func TestUpdatePasswordClearsResetKeys(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")

	resetKey := database.ResetKey{
		Key:       uuid.New(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&resetKey).Error)

	require.NoError(t, s.UpdatePassword(user, "newpass123"))

	found, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword("newpass123", found.PasswordHash))
	assert.False(t, utils.VerifyPassword("pw123456", found.PasswordHash))

	var count int64
	db.Model(&database.ResetKey{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestUpdatePasswordClearsLockout(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")

	for i := 0; i < 5; i++ {
		s.IncrementAccessFailedCount(user)
	}

	found, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.True(t, s.IsLocked(found))

	require.NoError(t, s.UpdatePassword(user, "newpass123"))

	found, err = s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.False(t, s.IsLocked(found))
	assert.Equal(t, 0, found.AccessFailedCount)
}

func TestLockout(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	user := newTestUser(t, s, "alice@example.com")
	assert.False(t, s.IsLocked(user))

	for i := 0; i < 5; i++ {
		s.IncrementAccessFailedCount(user)
	}

	found, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, s.IsLocked(found))

	require.NoError(t, s.RecordLogin(user.ID))

	found, err = s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.False(t, s.IsLocked(found))
}
