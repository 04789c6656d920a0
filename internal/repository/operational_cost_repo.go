package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// OperationalCostRepository 运营成本仓储
type OperationalCostRepository struct {
	db *gorm.DB
}

// NewOperationalCostRepository 创建运营成本仓储
func NewOperationalCostRepository(db *gorm.DB) *OperationalCostRepository {
	return &OperationalCostRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *OperationalCostRepository) WithTx(tx *gorm.DB) *OperationalCostRepository {
	return &OperationalCostRepository{db: tx}
}

// Create 创建运营成本
func (r *OperationalCostRepository) Create(ctx context.Context, cost *models.OperationalCost) error {
	return r.db.WithContext(ctx).Create(cost).Error
}

// GetByID 根据 ID 获取运营成本
func (r *OperationalCostRepository) GetByID(ctx context.Context, id int64) (*models.OperationalCost, error) {
	var cost models.OperationalCost
	if err := r.db.WithContext(ctx).First(&cost, id).Error; err != nil {
		return nil, err
	}
	return &cost, nil
}

// Update 更新运营成本
func (r *OperationalCostRepository) Update(ctx context.Context, cost *models.OperationalCost) error {
	return r.db.WithContext(ctx).Save(cost).Error
}

// Delete 删除运营成本
func (r *OperationalCostRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.OperationalCost{}, id).Error
}

// OperationalCostFilter 运营成本查询过滤条件
type OperationalCostFilter struct {
	Start    *time.Time
	End      *time.Time
	CostType string
	Status   string
	// AllocatedOnly 只返回参与分摊的记录
	AllocatedOnly bool
}

// List 获取运营成本列表，按成本日期筛选
func (r *OperationalCostRepository) List(ctx context.Context, filter *OperationalCostFilter) ([]*models.OperationalCost, error) {
	var costs []*models.OperationalCost
	query := r.db.WithContext(ctx).Model(&models.OperationalCost{})
	if filter != nil {
		if filter.Start != nil {
			query = query.Where("cost_date >= ?", *filter.Start)
		}
		if filter.End != nil {
			query = query.Where("cost_date < ?", *filter.End)
		}
		if filter.CostType != "" {
			query = query.Where("cost_type = ?", filter.CostType)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.AllocatedOnly {
			query = query.Where("allocated_to_courses = ?", true)
		}
	}
	err := query.Order("cost_date ASC, id ASC").Find(&costs).Error
	return costs, err
}
