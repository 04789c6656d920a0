package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// DividendRepository 分红仓储
type DividendRepository struct {
	db *gorm.DB
}

// NewDividendRepository 创建分红仓储
func NewDividendRepository(db *gorm.DB) *DividendRepository {
	return &DividendRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *DividendRepository) WithTx(tx *gorm.DB) *DividendRepository {
	return &DividendRepository{db: tx}
}

// Create 创建分红记录
func (r *DividendRepository) Create(ctx context.Context, record *models.DividendRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID 根据 ID 获取分红记录
func (r *DividendRepository) GetByID(ctx context.Context, id int64) (*models.DividendRecord, error) {
	var record models.DividendRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByIDForUpdate 加行锁获取分红记录
func (r *DividendRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.DividendRecord, error) {
	var record models.DividendRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update 更新分红记录
func (r *DividendRepository) Update(ctx context.Context, record *models.DividendRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Delete 删除分红记录
func (r *DividendRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.DividendRecord{}, id).Error
}

// ExistsPeriod 检查 (股东, 年, 月, 分红日期) 是否已存在
func (r *DividendRepository) ExistsPeriod(ctx context.Context, record *models.DividendRecord, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.DividendRecord{}).
		Where("shareholder_name = ? AND period_year = ? AND period_month = ? AND dividend_date = ?",
			record.ShareholderName, record.PeriodYear, record.PeriodMonth, record.DividendDate)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// DividendFilter 分红记录查询过滤条件
type DividendFilter struct {
	ShareholderName string
	Year            *int
	Month           *int
	Status          string
}

// List 获取分红记录
func (r *DividendRepository) List(ctx context.Context, filter *DividendFilter) ([]*models.DividendRecord, error) {
	var records []*models.DividendRecord
	query := r.db.WithContext(ctx).Model(&models.DividendRecord{})
	if filter != nil {
		if filter.ShareholderName != "" {
			query = query.Where("shareholder_name = ?", filter.ShareholderName)
		}
		if filter.Year != nil {
			query = query.Where("period_year = ?", *filter.Year)
		}
		if filter.Month != nil {
			query = query.Where("period_month = ?", *filter.Month)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}
	err := query.Order("period_year DESC, period_month DESC, dividend_date DESC, id DESC").Find(&records).Error
	return records, err
}

// GetSummary 获取股东分红汇总
func (r *DividendRepository) GetSummary(ctx context.Context, shareholder string) (*models.DividendSummary, error) {
	var summary models.DividendSummary
	if err := r.db.WithContext(ctx).Where("shareholder_name = ?", shareholder).First(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListSummaries 获取全部股东分红汇总
func (r *DividendRepository) ListSummaries(ctx context.Context) ([]*models.DividendSummary, error) {
	var summaries []*models.DividendSummary
	err := r.db.WithContext(ctx).Order("shareholder_name ASC").Find(&summaries).Error
	return summaries, err
}

// SaveSummary 以股东名为键写入汇总
func (r *DividendRepository) SaveSummary(ctx context.Context, summary *models.DividendSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shareholder_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_calculated", "total_paid", "total_pending",
			"record_count", "last_dividend_date", "updated_at",
		}),
	}).Create(summary).Error
}
