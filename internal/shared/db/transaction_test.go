package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&counter{}))
	return db
}

func TestRunInTransaction_CommitAndRollback(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		assert.True(t, InTransaction(txCtx))
		return GetTxFromContext(txCtx, db).Create(&counter{Value: 1}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, GetTxFromContext(txCtx, db).Create(&counter{Value: 2}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&counter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunInTransaction_Nested(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)

	err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
		return tm.RunInTransaction(outer, func(inner context.Context) error {
			assert.Same(t, GetTxFromContext(outer, db), GetTxFromContext(inner, db))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestForUpdate_SkipsOutsideTransactionAndOnSQLite(t *testing.T) {
	db := setupTestDB(t)
	assert.Same(t, db, ForUpdate(context.Background(), db))
}
