package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

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

func newTestUser(t *testing.T, db *gorm.DB) *database.User {
	t.Helper()

	user := database.User{
		Email:        "alice@example.com",
		PasswordHash: utils.HashPassword("pw123456"),
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func TestCreateAndResolve(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db)
	s := NewService(db, time.Hour)

	token, err := s.Create(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "chs"))

	resolved, err := s.Resolve(token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestResolveUnknownToken(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, time.Hour)

	resolved, err := s.Resolve("chsdoesnotexist")
	require.NoError(t, err)
	assert.Nil(t, resolved)

	resolved, err = s.Resolve("")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveExpiredToken(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db)
	s := NewService(db, -time.Second)

	token, err := s.Create(user)
	require.NoError(t, err)

	resolved, err := s.Resolve(token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestRevoke(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db)
	s := NewService(db, time.Hour)

	token, err := s.Create(user)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(token))

	resolved, err := s.Resolve(token)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// Revoking again, or revoking garbage, is a no-op.
	require.NoError(t, s.Revoke(token))
	require.NoError(t, s.Revoke("chsdoesnotexist"))
}

func TestConcurrentSessionsSameUser(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db)
	s := NewService(db, time.Hour)

	const tabs = 5

	tokens := make([]string, tabs)
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := s.Create(user)
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, token := range tokens {
		assert.False(t, seen[token], "duplicate session token")
		seen[token] = true

		resolved, err := s.Resolve(token)
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, user.ID, resolved.ID)
	}

	// Revoking one tab leaves the others alone.
	require.NoError(t, s.Revoke(tokens[0]))

	resolved, err := s.Resolve(tokens[0])
	require.NoError(t, err)
	assert.Nil(t, resolved)

	resolved, err = s.Resolve(tokens[1])
	require.NoError(t, err)
	assert.NotNil(t, resolved)
}

func TestRolesPreloadedOnResolve(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db)
	s := NewService(db, time.Hour)

	role := database.Role{Name: "administrator"}
	require.NoError(t, db.Create(&role).Error)
	require.NoError(t, db.Create(&database.UserRole{UserID: user.ID, RoleID: role.ID}).Error)

	token, err := s.Create(user)
	require.NoError(t, err)

	resolved, err := s.Resolve(token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Len(t, resolved.Roles, 1)
	assert.Equal(t, "administrator", resolved.Roles[0].Name)
}
