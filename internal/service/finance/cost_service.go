package finance

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
)

// CostService 运营成本服务
type CostService struct {
	db       *gorm.DB
	costRepo *repository.OperationalCostRepository
	reports  *ReportService
}

// NewCostService 创建运营成本服务
func NewCostService(db *gorm.DB, costRepo *repository.OperationalCostRepository, reports *ReportService) *CostService {
	return &CostService{
		db:       db,
		costRepo: costRepo,
		reports:  reports,
	}
}

// CreateCostRequest 创建运营成本请求
type CreateCostRequest struct {
	CostType           string          `json:"cost_type" validate:"required,max=50"`
	CostName           string          `json:"cost_name" validate:"required,max=100"`
	Amount             decimal.Decimal `json:"amount" validate:"gte=0"`
	CostDate           time.Time       `json:"cost_date" validate:"required"`
	BillingPeriod      string          `json:"billing_period" validate:"omitempty,oneof=month quarter year one-time"`
	AllocationMethod   string          `json:"allocation_method" validate:"omitempty,oneof=proportional equal"`
	AllocatedToCourses *bool           `json:"allocated_to_courses"`
	Status             string          `json:"status" validate:"omitempty,oneof=active archived"`
	Description        *string         `json:"description" validate:"omitempty,max=255"`
}

// UpdateCostRequest 更新运营成本请求，空字段不修改
type UpdateCostRequest struct {
	CostType           *string          `json:"cost_type" validate:"omitempty,min=1,max=50"`
	CostName           *string          `json:"cost_name" validate:"omitempty,min=1,max=100"`
	Amount             *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	CostDate           *time.Time       `json:"cost_date"`
	BillingPeriod      *string          `json:"billing_period" validate:"omitempty,oneof=month quarter year one-time"`
	AllocationMethod   *string          `json:"allocation_method" validate:"omitempty,oneof=proportional equal"`
	AllocatedToCourses *bool            `json:"allocated_to_courses"`
	Status             *string          `json:"status" validate:"omitempty,oneof=active archived"`
	Description        *string          `json:"description" validate:"omitempty,max=255"`
}

// CostListRequest 运营成本列表请求
type CostListRequest struct {
	Window   period.Window
	CostType string
	Status   string
}

// Create 创建运营成本
func (s *CostService) Create(ctx context.Context, req *CreateCostRequest) (*models.OperationalCost, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	cost := &models.OperationalCost{
		CostType:           strings.TrimSpace(req.CostType),
		CostName:           strings.TrimSpace(req.CostName),
		Amount:             req.Amount,
		CostDate:           req.CostDate.UTC(),
		BillingPeriod:      defaultString(req.BillingPeriod, models.BillingPeriodMonth),
		AllocationMethod:   defaultString(req.AllocationMethod, models.AllocationProportional),
		AllocatedToCourses: true,
		Status:             defaultString(req.Status, models.OperationalCostActive),
		Description:        req.Description,
	}
	if req.AllocatedToCourses != nil {
		cost.AllocatedToCourses = *req.AllocatedToCourses
	}

	if err := s.costRepo.Create(ctx, cost); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("operational cost created", logger.Module("finance"), logger.Int64("cost_id", cost.ID))
	return cost, nil
}

// Get 获取运营成本
func (s *CostService) Get(ctx context.Context, id int64) (*models.OperationalCost, error) {
	cost, err := s.costRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrOperationalCostNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return cost, nil
}

// Update 更新运营成本
func (s *CostService) Update(ctx context.Context, id int64, req *UpdateCostRequest) (*models.OperationalCost, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var cost *models.OperationalCost
	err := database.Transaction(ctx, s.db, "finance", func(tx *gorm.DB) error {
		repo := s.costRepo.WithTx(tx)
		var err error
		cost, err = repo.GetByID(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrOperationalCostNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		if req.CostType != nil {
			cost.CostType = strings.TrimSpace(*req.CostType)
		}
		if req.CostName != nil {
			cost.CostName = strings.TrimSpace(*req.CostName)
		}
		if req.Amount != nil {
			cost.Amount = *req.Amount
		}
		if req.CostDate != nil {
			cost.CostDate = req.CostDate.UTC()
		}
		if req.BillingPeriod != nil {
			cost.BillingPeriod = *req.BillingPeriod
		}
		if req.AllocationMethod != nil {
			cost.AllocationMethod = *req.AllocationMethod
		}
		if req.AllocatedToCourses != nil {
			cost.AllocatedToCourses = *req.AllocatedToCourses
		}
		if req.Status != nil {
			cost.Status = *req.Status
		}
		if req.Description != nil {
			cost.Description = req.Description
		}

		if err := repo.Update(ctx, cost); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cost, nil
}

// Delete 删除运营成本
func (s *CostService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.costRepo.Delete(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("operational cost deleted", logger.Module("finance"), logger.Int64("cost_id", id))
	return nil
}

// List 按成本日期列出窗口内的运营成本
func (s *CostService) List(ctx context.Context, req *CostListRequest) ([]*models.OperationalCost, error) {
	if req.Window.IsEmpty() {
		return []*models.OperationalCost{}, nil
	}
	costs, err := s.costRepo.List(ctx, &repository.OperationalCostFilter{
		Start:    &req.Window.Start,
		End:      &req.Window.End,
		CostType: req.CostType,
		Status:   req.Status,
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return costs, nil
}

// Allocation 窗口内运营成本分摊
func (s *CostService) Allocation(ctx context.Context, w period.Window) (*Allocation, error) {
	return s.reports.Allocation(ctx, w)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
