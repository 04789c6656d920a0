// Package setting 提供业务参数注册表
package setting

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
)

const cacheName = "system_config"

// entry 缓存项，found 为 false 表示库中不存在该键
type entry struct {
	value string
	found bool
}

// Registry 业务参数注册表，读穿透进程内缓存
type Registry struct {
	db       *gorm.DB
	repo     *repository.SystemConfigRepository
	defaults map[string]string

	mu    sync.RWMutex
	cache map[string]entry
	// gen 每次失效递增，防止并发读把旧值写回缓存
	gen uint64
}

// NewRegistry 创建注册表，defaults 为未写入过的键提供默认值
func NewRegistry(db *gorm.DB, repo *repository.SystemConfigRepository, defaults map[string]string) *Registry {
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &Registry{
		db:       db,
		repo:     repo,
		defaults: d,
		cache:    make(map[string]entry),
	}
}

// Seed 把默认值写入库中尚不存在的键
func (r *Registry) Seed(ctx context.Context) error {
	if err := r.repo.SeedMissing(ctx, r.defaults); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	r.Invalidate()
	return nil
}

// lookup 读取原始值，优先缓存
func (r *Registry) lookup(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	e, ok := r.cache[key]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		metrics.RecordCacheHitGlobal(cacheName)
		return e.value, e.found, nil
	}
	metrics.RecordCacheMissGlobal(cacheName)

	cfg, err := r.repo.GetByKey(ctx, key)
	switch {
	case err == nil:
		e = entry{value: cfg.Value, found: true}
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		e = entry{}
	default:
		return "", false, errors.ErrDatabaseError.WithError(err)
	}

	r.mu.Lock()
	if r.gen == gen {
		r.cache[key] = e
	}
	r.mu.Unlock()
	return e.value, e.found, nil
}

// resolve 库中值 > 注册表默认值 > 调用方默认值
func (r *Registry) resolve(ctx context.Context, key string) (string, bool, error) {
	v, found, err := r.lookup(ctx, key)
	if err != nil {
		return "", false, err
	}
	if found {
		return v, true, nil
	}
	if d, ok := r.defaults[key]; ok {
		return d, true, nil
	}
	return "", false, nil
}

// GetString 读取字符串配置
func (r *Registry) GetString(ctx context.Context, key, def string) (string, error) {
	v, found, err := r.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// GetDecimal 读取十进制配置，值无法解析时返回 ErrConfigInvalid
func (r *Registry) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	v, found, err := r.resolve(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !found || strings.TrimSpace(v) == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, errors.ErrConfigInvalid.WithMessage("配置值无效: " + key).WithError(err)
	}
	return d, nil
}

// RequireDecimal 读取必填十进制配置，缺失时返回 ErrConfigMissing
func (r *Registry) RequireDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	v, found, err := r.resolve(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !found || strings.TrimSpace(v) == "" {
		return decimal.Zero, errors.ErrConfigMissing.WithMessage("缺少必要配置: " + key)
	}
	return r.GetDecimal(ctx, key, decimal.Zero)
}

// Set 持久化配置值，提交后失效对应缓存
func (r *Registry) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.ErrInvalidParams.WithMessage("配置键不能为空")
	}
	if err := validateValue(key, value); err != nil {
		return err
	}

	err := database.Transaction(ctx, r.db, "setting", func(tx *gorm.DB) error {
		return r.repo.WithTx(tx).Upsert(ctx, key, value)
	})
	if err != nil {
		return err
	}

	r.InvalidateKey(key)
	logger.Info("config updated", logger.Module("setting"), logger.String("key", key))
	return nil
}

// Invalidate 清空全部缓存
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]entry)
	r.gen++
	r.mu.Unlock()
}

// InvalidateKey 失效单个缓存项
func (r *Registry) InvalidateKey(key string) {
	r.mu.Lock()
	delete(r.cache, key)
	r.gen++
	r.mu.Unlock()
}

// All 返回全部生效配置，未写入的键以默认值补齐
func (r *Registry) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.repo.List(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	result := make(map[string]string, len(rows)+len(r.defaults))
	for k, v := range r.defaults {
		result[k] = v
	}
	for _, row := range rows {
		result[row.Key] = row.Value
	}
	return result, nil
}

// numericKeys 必须为数值的键
var numericKeys = map[string]bool{
	models.ConfigKeyTrialCost:         true,
	models.ConfigKeyCourseCost:        true,
	models.ConfigKeyTaobaoFeeRate:     true,
	models.ConfigKeyShareholderARatio: true,
	models.ConfigKeyShareholderBRatio: true,
}

func validateValue(key, value string) error {
	if !numericKeys[key] {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return errors.ErrInvalidParams.WithMessage("配置值必须为数字: " + key)
	}
	if d.IsNegative() {
		return errors.ErrInvalidParams.WithMessage("配置值不能为负: " + key)
	}
	return nil
}
