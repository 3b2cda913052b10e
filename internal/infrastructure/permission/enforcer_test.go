package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lexora-inc/lexora/internal/domain/permission"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

func setupTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	e, err := NewEnforcer(db, logger.NewNop())
	require.NoError(t, err)
	return e
}

func TestEnforcer_Sync(t *testing.T) {
	e := setupTestEnforcer(t)
	require.NoError(t, e.Sync([]string{"user_alice", "user_bob"}))

	ok, err := e.Enforce("user_alice", permission.ResourceOverrides, permission.ActionWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("user_mallory", permission.ResourceOverrides, permission.ActionWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	// Role names from the session token are checked directly.
	ok, err = e.Enforce(permission.RoleSupport, permission.ResourceOverrides, permission.ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.Enforce(permission.RoleSupport, permission.ResourceOverrides, permission.ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-sync drops admins no longer configured.
	require.NoError(t, e.Sync([]string{"user_bob"}))
	ok, err = e.Enforce("user_alice", permission.ResourceOverrides, permission.ActionWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := e.GetUsersForRole(permission.RoleBillingAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_bob"}, users)
}

func TestEnforcer_PoliciesPersist(t *testing.T) {
	e := setupTestEnforcer(t)
	require.NoError(t, e.Sync([]string{"user_alice"}))
	require.NoError(t, e.LoadPolicy())

	ok, err := e.Enforce("user_alice", permission.ResourceOverrides, permission.ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)
}
