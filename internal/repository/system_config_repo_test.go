// Package repository 系统配置仓储单元测试
package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSystemConfigRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSystemConfigRepository(db)
	ctx := context.Background()

	t.Run("首次写入", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, "course_cost", "20"))
		cfg, err := repo.GetByKey(ctx, "course_cost")
		require.NoError(t, err)
		assert.Equal(t, "20", cfg.Value)
	})

	t.Run("覆盖已有值", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, "course_cost", "25"))
		cfg, err := repo.GetByKey(ctx, "course_cost")
		require.NoError(t, err)
		assert.Equal(t, "25", cfg.Value)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestSystemConfigRepository_SeedMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSystemConfigRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "trial_cost", "50"))
	require.NoError(t, repo.SeedMissing(ctx, map[string]string{
		"trial_cost":      "0",
		"taobao_fee_rate": "0.6",
	}))

	cfg, err := repo.GetByKey(ctx, "trial_cost")
	require.NoError(t, err)
	assert.Equal(t, "50", cfg.Value, "已存在的键不被种子覆盖")

	cfg, err = repo.GetByKey(ctx, "taobao_fee_rate")
	require.NoError(t, err)
	assert.Equal(t, "0.6", cfg.Value)

	assert.NoError(t, repo.SeedMissing(ctx, nil))
}

func TestSystemConfigRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSystemConfigRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "k", "v"))
	require.NoError(t, repo.Delete(ctx, "k"))

	_, err := repo.GetByKey(ctx, "k")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
