package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *EmployeeRepository) WithTx(tx *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: tx}
}

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

// GetByID 根据 ID 获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// ExistsByName 检查员工姓名是否已存在
func (r *EmployeeRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Employee{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Update 更新员工
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Save(employee).Error
}

// Delete 删除员工及其提成配置
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("employee_id = ?", id).Delete(&models.CommissionConfig{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Employee{}, id).Error
}

// List 获取员工列表，activeOnly 为 true 时只返回在职员工
func (r *EmployeeRepository) List(ctx context.Context, activeOnly bool) ([]*models.Employee, error) {
	var employees []*models.Employee
	query := r.db.WithContext(ctx).Model(&models.Employee{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("id ASC").Find(&employees).Error
	return employees, err
}

// GetCommissionConfig 获取员工提成配置
func (r *EmployeeRepository) GetCommissionConfig(ctx context.Context, employeeID int64) (*models.CommissionConfig, error) {
	var cfg models.CommissionConfig
	if err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpsertCommissionConfig 创建或覆盖员工提成配置
func (r *EmployeeRepository) UpsertCommissionConfig(ctx context.Context, cfg *models.CommissionConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"basis", "trial_rate", "new_course_rate", "renewal_rate", "base_salary", "updated_at"}),
	}).Create(cfg).Error
}

// CommissionConfigsByEmployees 批量获取提成配置
func (r *EmployeeRepository) CommissionConfigsByEmployees(ctx context.Context, employeeIDs []int64) (map[int64]*models.CommissionConfig, error) {
	result := make(map[int64]*models.CommissionConfig, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}
	var configs []*models.CommissionConfig
	if err := r.db.WithContext(ctx).Where("employee_id IN ?", employeeIDs).Find(&configs).Error; err != nil {
		return nil, err
	}
	for _, c := range configs {
		result[c.EmployeeID] = c
	}
	return result, nil
}

// ActiveCommissionConfigs 获取在职员工的提成配置
func (r *EmployeeRepository) ActiveCommissionConfigs(ctx context.Context) ([]*models.CommissionConfig, error) {
	var configs []*models.CommissionConfig
	err := r.db.WithContext(ctx).
		Joins("JOIN employees ON employees.id = commission_configs.employee_id").
		Where("employees.is_active = ?", true).
		Order("commission_configs.employee_id ASC").
		Find(&configs).Error
	return configs, err
}
