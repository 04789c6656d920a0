// Package employee 提供员工及提成配置管理
package employee

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
)

// EmployeeService 员工服务
type EmployeeService struct {
	db           *gorm.DB
	employeeRepo *repository.EmployeeRepository
	courseRepo   *repository.CourseRepository
}

// NewEmployeeService 创建员工服务
func NewEmployeeService(db *gorm.DB, employeeRepo *repository.EmployeeRepository, courseRepo *repository.CourseRepository) *EmployeeService {
	return &EmployeeService{
		db:           db,
		employeeRepo: employeeRepo,
		courseRepo:   courseRepo,
	}
}

// CreateEmployeeRequest 创建员工请求
type CreateEmployeeRequest struct {
	Name          string          `json:"name" validate:"required,max=50"`
	Phone         *string         `json:"phone" validate:"omitempty,max=20"`
	Email         *string         `json:"email" validate:"omitempty,email,max=100"`
	MonthlySalary decimal.Decimal `json:"monthly_salary" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

// UpdateEmployeeRequest 更新员工请求，空字段不修改
type UpdateEmployeeRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=50"`
	Phone         *string          `json:"phone" validate:"omitempty,max=20"`
	Email         *string          `json:"email" validate:"omitempty,email,max=100"`
	MonthlySalary *decimal.Decimal `json:"monthly_salary" validate:"omitempty,gte=0"`
	IsActive      *bool            `json:"is_active"`
}

// CommissionConfigRequest 提成配置请求，比例为百分数
type CommissionConfigRequest struct {
	Basis         string          `json:"basis" validate:"omitempty,oneof=profit sales"`
	TrialRate     decimal.Decimal `json:"trial_rate" validate:"gte=0,lte=100"`
	NewCourseRate decimal.Decimal `json:"new_course_rate" validate:"gte=0,lte=100"`
	RenewalRate   decimal.Decimal `json:"renewal_rate" validate:"gte=0,lte=100"`
	BaseSalary    decimal.Decimal `json:"base_salary" validate:"gte=0"`
}

// Create 创建员工，姓名唯一
func (s *EmployeeService) Create(ctx context.Context, req *CreateEmployeeRequest) (*models.Employee, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	employee := &models.Employee{
		Name:          strings.TrimSpace(req.Name),
		Phone:         req.Phone,
		Email:         req.Email,
		MonthlySalary: req.MonthlySalary,
		IsActive:      true,
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	err := database.Transaction(ctx, s.db, "employee", func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		exists, err := repo.ExistsByName(ctx, employee.Name, 0)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return errors.ErrEmployeeExists
		}
		if err := repo.Create(ctx, employee); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrEmployeeExists
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("employee created", logger.Module("employee"), logger.EmployeeID(employee.ID))
	return employee, nil
}

// Get 获取员工
func (s *EmployeeService) Get(ctx context.Context, id int64) (*models.Employee, error) {
	employee, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrEmployeeNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return employee, nil
}

// Update 更新员工
func (s *EmployeeService) Update(ctx context.Context, id int64, req *UpdateEmployeeRequest) (*models.Employee, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var employee *models.Employee
	err := database.Transaction(ctx, s.db, "employee", func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		var err error
		employee, err = repo.GetByID(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrEmployeeNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			exists, err := repo.ExistsByName(ctx, name, id)
			if err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
			if exists {
				return errors.ErrEmployeeExists
			}
			employee.Name = name
		}
		if req.Phone != nil {
			employee.Phone = req.Phone
		}
		if req.Email != nil {
			employee.Email = req.Email
		}
		if req.MonthlySalary != nil {
			employee.MonthlySalary = *req.MonthlySalary
		}
		if req.IsActive != nil {
			employee.IsActive = *req.IsActive
		}
		if err := repo.Update(ctx, employee); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrEmployeeExists
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// Delete 删除员工及提成配置，名下课程的负责人置空
func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	err := database.Transaction(ctx, s.db, "employee", func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrEmployeeNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := s.courseRepo.WithTx(tx).UnassignEmployee(ctx, id); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("employee deleted", logger.Module("employee"), logger.EmployeeID(id))
	return nil
}

// List 获取员工列表
func (s *EmployeeService) List(ctx context.Context, activeOnly bool) ([]*models.Employee, error) {
	employees, err := s.employeeRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return employees, nil
}

// SetCommissionConfig 设置员工提成配置，已有配置则覆盖
func (s *EmployeeService) SetCommissionConfig(ctx context.Context, employeeID int64, req *CommissionConfigRequest) (*models.CommissionConfig, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	cfg := &models.CommissionConfig{
		EmployeeID:    employeeID,
		Basis:         req.Basis,
		TrialRate:     req.TrialRate,
		NewCourseRate: req.NewCourseRate,
		RenewalRate:   req.RenewalRate,
		BaseSalary:    req.BaseSalary,
	}
	if cfg.Basis == "" {
		cfg.Basis = models.CommissionBasisProfit
	}

	err := database.Transaction(ctx, s.db, "employee", func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		if _, err := repo.GetByID(ctx, employeeID); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrEmployeeNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := repo.UpsertCommissionConfig(ctx, cfg); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("commission config updated",
		logger.Module("employee"),
		logger.EmployeeID(employeeID),
		logger.String("basis", cfg.Basis),
	)
	return s.GetCommissionConfig(ctx, employeeID)
}

// GetCommissionConfig 获取员工提成配置，未配置时返回全零配置
func (s *EmployeeService) GetCommissionConfig(ctx context.Context, employeeID int64) (*models.CommissionConfig, error) {
	if _, err := s.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	cfg, err := s.employeeRepo.GetCommissionConfig(ctx, employeeID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return &models.CommissionConfig{
				EmployeeID: employeeID,
				Basis:      models.CommissionBasisProfit,
			}, nil
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return cfg, nil
}

// MonthlyCost 员工月度人力成本：在职员工的提成底薪合计
func (s *EmployeeService) MonthlyCost(ctx context.Context) (decimal.Decimal, error) {
	configs, err := s.employeeRepo.ActiveCommissionConfigs(ctx)
	if err != nil {
		return decimal.Zero, errors.ErrDatabaseError.WithError(err)
	}
	salaries := make([]decimal.Decimal, 0, len(configs))
	for _, c := range configs {
		salaries = append(salaries, c.BaseSalary)
	}
	return utils.SumDecimal(salaries...), nil
}
