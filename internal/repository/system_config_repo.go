// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// SystemConfigRepository 系统配置仓储
type SystemConfigRepository struct {
	db *gorm.DB
}

// NewSystemConfigRepository 创建系统配置仓储
func NewSystemConfigRepository(db *gorm.DB) *SystemConfigRepository {
	return &SystemConfigRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *SystemConfigRepository) WithTx(tx *gorm.DB) *SystemConfigRepository {
	return &SystemConfigRepository{db: tx}
}

// GetByKey 根据键获取配置
func (r *SystemConfigRepository) GetByKey(ctx context.Context, key string) (*models.SystemConfig, error) {
	var config models.SystemConfig
	err := r.db.WithContext(ctx).
		Where("\"key\" = ?", key).
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// List 获取全部配置
func (r *SystemConfigRepository) List(ctx context.Context) ([]*models.SystemConfig, error) {
	var configs []*models.SystemConfig
	err := r.db.WithContext(ctx).
		Order("\"key\" ASC").
		Find(&configs).Error
	return configs, err
}

// Upsert 写入配置值，键已存在时覆盖
func (r *SystemConfigRepository) Upsert(ctx context.Context, key, value string) error {
	config := &models.SystemConfig{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(config).Error
}

// SeedMissing 仅写入尚不存在的键
func (r *SystemConfigRepository) SeedMissing(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	configs := make([]*models.SystemConfig, 0, len(values))
	for k, v := range values {
		configs = append(configs, &models.SystemConfig{Key: k, Value: v})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&configs).Error
}

// Delete 删除配置
func (r *SystemConfigRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("\"key\" = ?", key).Delete(&models.SystemConfig{}).Error
}
