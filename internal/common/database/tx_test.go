package database

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
)

type ledgerRow struct {
	ID   int64
	Note string
}

func setupTxDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, testDB.AutoMigrate(&ledgerRow{}))
	return testDB
}

func countRows(t *testing.T, testDB *gorm.DB) int64 {
	var n int64
	require.NoError(t, testDB.Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestTransaction_Commit(t *testing.T) {
	testDB := setupTxDB(t)

	err := Transaction(context.Background(), testDB, "test", func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Note: "a"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, testDB))
}

func TestTransaction_AppErrorPropagatesUnchanged(t *testing.T) {
	testDB := setupTxDB(t)

	err := Transaction(context.Background(), testDB, "test", func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Note: "a"}).Error)
		return errors.ErrRefundExceedsRemaining
	})
	assert.Same(t, errors.ErrRefundExceedsRemaining, err)
	assert.Equal(t, int64(0), countRows(t, testDB))
}

func TestTransaction_NestedInnermostError(t *testing.T) {
	testDB := setupTxDB(t)

	err := Transaction(context.Background(), testDB, "outer", func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Note: "outer"}).Error)
		return Transaction(context.Background(), tx, "inner", func(inner *gorm.DB) error {
			return errors.ErrAlreadyConverted
		})
	})
	assert.True(t, errors.Is(err, errors.ErrAlreadyConverted))
	assert.Equal(t, int64(0), countRows(t, testDB))
}

func TestTransaction_StoreErrorWrapped(t *testing.T) {
	testDB := setupTxDB(t)

	raw := stderrors.New("serialization failure")
	err := Transaction(context.Background(), testDB, "test", func(tx *gorm.DB) error {
		return raw
	})
	assert.True(t, errors.Is(err, errors.ErrTransactionFailed))
	assert.True(t, stderrors.Is(err, raw))
	assert.Equal(t, errors.KindTransactionFailure, errors.KindOf(err))
}

func TestReadSnapshot(t *testing.T) {
	testDB := setupTxDB(t)
	require.NoError(t, testDB.Create(&ledgerRow{Note: "a"}).Error)

	var n int64
	err := ReadSnapshot(context.Background(), testDB, func(tx *gorm.DB) error {
		return tx.Model(&ledgerRow{}).Count(&n).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = ReadSnapshot(context.Background(), testDB, func(tx *gorm.DB) error {
		return errors.ErrInvalidPeriod
	})
	assert.Same(t, errors.ErrInvalidPeriod, err)

	err = ReadSnapshot(context.Background(), testDB, func(tx *gorm.DB) error {
		return stderrors.New("boom")
	})
	assert.True(t, errors.Is(err, errors.ErrDatabaseError))
}
