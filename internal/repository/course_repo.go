package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// CourseRepository 课程仓储
type CourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository 创建课程仓储
func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{db: tx}
}

// Create 创建课程
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

// GetByID 根据 ID 获取课程
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// GetByIDForUpdate 加行锁获取课程，需在事务中调用
func (r *CourseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetTrialByCustomer 获取客户的试听课
func (r *CourseRepository) GetTrialByCustomer(ctx context.Context, customerID int64) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Where("kind = ? AND customer_id = ?", models.CourseKindTrial, customerID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Save 保存课程全部字段
func (r *CourseRepository) Save(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

// UpdateFields 更新指定字段
func (r *CourseRepository) UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除课程
func (r *CourseRepository) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Course{}).Error
}

// IDsByCustomer 获取客户名下的课程 ID
func (r *CourseRepository) IDsByCustomer(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("customer_id = ?", customerID).
		Pluck("id", &ids).Error
	return ids, err
}

// ClearWeakReferences 置空指向这些课程的转化和续课引用
func (r *CourseRepository) ClearWeakReferences(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("converted_to_course_id IN ?", ids).
		Update("converted_to_course_id", nil).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("converted_from_trial_id IN ?", ids).
		Update("converted_from_trial_id", nil).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Where("renewal_from_course_id IN ?", ids).
		Update("renewal_from_course_id", nil).Error
}

// CourseFilter 课程查询过滤条件
type CourseFilter struct {
	Kind        string
	TrialStatus string
	CustomerID  *int64
	EmployeeID  *int64
	IsRenewal   *bool
	Start       *time.Time
	End         *time.Time
	// ExcludeMisOperation 排除误操作试听课
	ExcludeMisOperation bool
}

func (f *CourseFilter) apply(query *gorm.DB) *gorm.DB {
	if f == nil {
		return query
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}
	if f.TrialStatus != "" {
		query = query.Where("trial_status = ?", f.TrialStatus)
	}
	if f.CustomerID != nil {
		query = query.Where("customer_id = ?", *f.CustomerID)
	}
	if f.EmployeeID != nil {
		query = query.Where("assigned_employee_id = ?", *f.EmployeeID)
	}
	if f.IsRenewal != nil {
		query = query.Where("is_renewal = ?", *f.IsRenewal)
	}
	if f.Start != nil {
		query = query.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		query = query.Where("created_at < ?", *f.End)
	}
	if f.ExcludeMisOperation {
		query = query.Where("NOT (kind = ? AND trial_status = ?)", models.CourseKindTrial, models.TrialStatusMisOperation)
	}
	return query
}

// List 分页获取课程列表
func (r *CourseRepository) List(ctx context.Context, filter *CourseFilter, offset, limit int) ([]*models.Course, int64, error) {
	var courses []*models.Course
	var total int64

	query := filter.apply(r.db.WithContext(ctx).Model(&models.Course{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&courses).Error; err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// FindAll 获取满足条件的全部课程，按 ID 升序
func (r *CourseRepository) FindAll(ctx context.Context, filter *CourseFilter) ([]*models.Course, error) {
	var courses []*models.Course
	err := filter.apply(r.db.WithContext(ctx).Model(&models.Course{})).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

// GetByIDs 批量获取课程
func (r *CourseRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Course, error) {
	result := make(map[int64]*models.Course, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var courses []*models.Course
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	for _, c := range courses {
		result[c.ID] = c
	}
	return result, nil
}

// CountInWindow 统计窗口内参与统计的课程数
func (r *CourseRepository) CountInWindow(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	filter := &CourseFilter{Start: &start, End: &end, ExcludeMisOperation: true}
	err := filter.apply(r.db.WithContext(ctx).Model(&models.Course{})).Count(&count).Error
	return count, err
}

// UnassignEmployee 置空指向该员工的负责人
func (r *CourseRepository) UnassignEmployee(ctx context.Context, employeeID int64) error {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Where("assigned_employee_id = ?", employeeID).
		Update("assigned_employee_id", nil).Error
}
