package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// RefundRepository 课程退费仓储
type RefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退费仓储
func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *RefundRepository) WithTx(tx *gorm.DB) *RefundRepository {
	return &RefundRepository{db: tx}
}

// Create 创建退费记录
func (r *RefundRepository) Create(ctx context.Context, refund *models.CourseRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// GetByID 根据 ID 获取退费记录
func (r *RefundRepository) GetByID(ctx context.Context, id int64) (*models.CourseRefund, error) {
	var refund models.CourseRefund
	if err := r.db.WithContext(ctx).First(&refund, id).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetByIDForUpdate 加行锁获取退费记录
func (r *RefundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.CourseRefund, error) {
	var refund models.CourseRefund
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&refund, id).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// MarkCancelled 将退费记录标记为已取消
func (r *RefundRepository) MarkCancelled(ctx context.Context, id int64, reason *string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CourseRefund{}).
		Where("id = ? AND status = ?", id, models.RefundStatusCompleted).
		Updates(map[string]interface{}{
			"status":        models.RefundStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		}).Error
}

// ListByCourse 获取课程的退费历史，按创建时间倒序
func (r *RefundRepository) ListByCourse(ctx context.Context, courseID int64) ([]*models.CourseRefund, error) {
	var refunds []*models.CourseRefund
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&refunds).Error
	return refunds, err
}

// RefundTotals 已完成退费汇总
type RefundTotals struct {
	Sessions int
	Amount   decimal.Decimal
	Fee      decimal.Decimal
	Count    int
}

// CompletedTotals 汇总单个课程的已完成退费
func (r *RefundRepository) CompletedTotals(ctx context.Context, courseID int64) (RefundTotals, error) {
	totals, err := r.CompletedTotalsByCourses(ctx, []int64{courseID})
	if err != nil {
		return RefundTotals{}, err
	}
	return totals[courseID], nil
}

// CompletedTotalsByCourses 批量汇总已完成退费，金额在内存中用十进制累加
func (r *RefundRepository) CompletedTotalsByCourses(ctx context.Context, courseIDs []int64) (map[int64]RefundTotals, error) {
	result := make(map[int64]RefundTotals, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}
	var refunds []*models.CourseRefund
	err := r.db.WithContext(ctx).
		Where("course_id IN ? AND status = ?", courseIDs, models.RefundStatusCompleted).
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	for _, rf := range refunds {
		t := result[rf.CourseID]
		t.Sessions += rf.RefundSessions
		t.Amount = t.Amount.Add(rf.RefundAmount)
		t.Fee = t.Fee.Add(rf.RefundFee)
		t.Count++
		result[rf.CourseID] = t
	}
	return result, nil
}

// ListCompletedInWindow 获取退费日期落在 [start, end) 的已完成退费
func (r *RefundRepository) ListCompletedInWindow(ctx context.Context, start, end time.Time) ([]*models.CourseRefund, error) {
	var refunds []*models.CourseRefund
	err := r.db.WithContext(ctx).
		Where("status = ? AND refund_date >= ? AND refund_date < ?", models.RefundStatusCompleted, start, end).
		Order("refund_date ASC, id ASC").
		Find(&refunds).Error
	return refunds, err
}

// DeleteByCourses 删除课程的全部退费记录
func (r *RefundRepository) DeleteByCourses(ctx context.Context, courseIDs []int64) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("course_id IN ?", courseIDs).Delete(&models.CourseRefund{}).Error
}

// CountByCourse 统计课程的退费记录数（含已取消）
func (r *RefundRepository) CountByCourse(ctx context.Context, courseID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CourseRefund{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
