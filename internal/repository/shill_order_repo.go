package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// ShillOrderRepository 刷单仓储
type ShillOrderRepository struct {
	db *gorm.DB
}

// NewShillOrderRepository 创建刷单仓储
func NewShillOrderRepository(db *gorm.DB) *ShillOrderRepository {
	return &ShillOrderRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *ShillOrderRepository) WithTx(tx *gorm.DB) *ShillOrderRepository {
	return &ShillOrderRepository{db: tx}
}

// Create 创建刷单记录
func (r *ShillOrderRepository) Create(ctx context.Context, order *models.ShillOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID 根据 ID 获取刷单记录
func (r *ShillOrderRepository) GetByID(ctx context.Context, id int64) (*models.ShillOrder, error) {
	var order models.ShillOrder
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update 更新刷单记录
func (r *ShillOrderRepository) Update(ctx context.Context, order *models.ShillOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// Settle 结算刷单，只对未结算记录生效，返回受影响行数
func (r *ShillOrderRepository) Settle(ctx context.Context, id int64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ShillOrder{}).
		Where("id = ? AND settled = ?", id, false).
		Updates(map[string]interface{}{
			"settled":    true,
			"settled_at": at,
		})
	return result.RowsAffected, result.Error
}

// Delete 删除刷单记录
func (r *ShillOrderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.ShillOrder{}, id).Error
}

// ShillOrderFilter 刷单查询过滤条件
type ShillOrderFilter struct {
	Start   *time.Time
	End     *time.Time
	Settled *bool
}

// List 获取刷单列表，按下单时间筛选
func (r *ShillOrderRepository) List(ctx context.Context, filter *ShillOrderFilter) ([]*models.ShillOrder, error) {
	var orders []*models.ShillOrder
	query := r.db.WithContext(ctx).Model(&models.ShillOrder{})
	if filter != nil {
		if filter.Start != nil {
			query = query.Where("order_time >= ?", *filter.Start)
		}
		if filter.End != nil {
			query = query.Where("order_time < ?", *filter.End)
		}
		if filter.Settled != nil {
			query = query.Where("settled = ?", *filter.Settled)
		}
	}
	err := query.Order("order_time DESC, id DESC").Find(&orders).Error
	return orders, err
}
