// Package marketing 提供刷单记录管理
package marketing

import (
	"context"
	stderrors "errors"
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

// ShillOrderService 刷单服务
type ShillOrderService struct {
	db        *gorm.DB
	shillRepo *repository.ShillOrderRepository
	now       func() time.Time
}

// NewShillOrderService 创建刷单服务
func NewShillOrderService(db *gorm.DB, shillRepo *repository.ShillOrderRepository) *ShillOrderService {
	return &ShillOrderService{
		db:        db,
		shillRepo: shillRepo,
		now:       time.Now,
	}
}

// CreateShillOrderRequest 创建刷单请求
type CreateShillOrderRequest struct {
	Name        string          `json:"name" validate:"required,max=50"`
	Level       string          `json:"level" validate:"max=20"`
	ProductName *string         `json:"product_name" validate:"omitempty,max=100"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Commission  decimal.Decimal `json:"commission" validate:"gte=0"`
	PlatformFee decimal.Decimal `json:"platform_fee" validate:"gte=0"`
	Evaluated   bool            `json:"evaluated"`
	OrderTime   *time.Time      `json:"order_time"`
}

// UpdateShillOrderRequest 更新刷单请求，空字段不修改
type UpdateShillOrderRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=50"`
	Level       *string          `json:"level" validate:"omitempty,max=20"`
	ProductName *string          `json:"product_name" validate:"omitempty,max=100"`
	Amount      *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	Commission  *decimal.Decimal `json:"commission" validate:"omitempty,gte=0"`
	PlatformFee *decimal.Decimal `json:"platform_fee" validate:"omitempty,gte=0"`
	Evaluated   *bool            `json:"evaluated"`
	OrderTime   *time.Time       `json:"order_time"`
}

// ListRequest 刷单查询请求
type ListRequest struct {
	Window  *period.Window
	Settled *bool
}

// Create 创建刷单记录，未指定下单时间时取当前时间
func (s *ShillOrderService) Create(ctx context.Context, req *CreateShillOrderRequest) (*models.ShillOrder, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	order := &models.ShillOrder{
		Name:        req.Name,
		Level:       req.Level,
		ProductName: req.ProductName,
		Amount:      req.Amount,
		Commission:  req.Commission,
		PlatformFee: req.PlatformFee,
		Evaluated:   req.Evaluated,
		OrderTime:   s.now().UTC(),
	}
	if req.OrderTime != nil {
		order.OrderTime = req.OrderTime.UTC()
	}
	if err := s.shillRepo.Create(ctx, order); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("shill order created", logger.Module("marketing"), logger.Int64("shill_order_id", order.ID))
	return order, nil
}

// Get 获取刷单记录
func (s *ShillOrderService) Get(ctx context.Context, id int64) (*models.ShillOrder, error) {
	order, err := s.shillRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrShillOrderNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return order, nil
}

// Update 更新刷单记录
func (s *ShillOrderService) Update(ctx context.Context, id int64, req *UpdateShillOrderRequest) (*models.ShillOrder, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var order *models.ShillOrder
	err := database.Transaction(ctx, s.db, "marketing", func(tx *gorm.DB) error {
		repo := s.shillRepo.WithTx(tx)
		var err error
		order, err = repo.GetByID(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrShillOrderNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if req.Name != nil {
			order.Name = *req.Name
		}
		if req.Level != nil {
			order.Level = *req.Level
		}
		if req.ProductName != nil {
			order.ProductName = req.ProductName
		}
		if req.Amount != nil {
			order.Amount = *req.Amount
		}
		if req.Commission != nil {
			order.Commission = *req.Commission
		}
		if req.PlatformFee != nil {
			order.PlatformFee = *req.PlatformFee
		}
		if req.Evaluated != nil {
			order.Evaluated = *req.Evaluated
		}
		if req.OrderTime != nil {
			order.OrderTime = req.OrderTime.UTC()
		}
		if err := repo.Update(ctx, order); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Delete 删除刷单记录
func (s *ShillOrderService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.shillRepo.Delete(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// Settle 结算刷单，已结算的记录返回 ErrAlreadySettled
func (s *ShillOrderService) Settle(ctx context.Context, id int64) (*models.ShillOrder, error) {
	err := database.Transaction(ctx, s.db, "marketing", func(tx *gorm.DB) error {
		repo := s.shillRepo.WithTx(tx)
		affected, err := repo.Settle(ctx, id, s.now().UTC())
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if affected > 0 {
			return nil
		}
		if _, err := repo.GetByID(ctx, id); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrShillOrderNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return errors.ErrAlreadySettled
	})
	if err != nil {
		return nil, err
	}
	logger.Info("shill order settled", logger.Module("marketing"), logger.Int64("shill_order_id", id))
	return s.Get(ctx, id)
}

// List 查询刷单记录，空窗口返回空列表
func (s *ShillOrderService) List(ctx context.Context, req *ListRequest) ([]*models.ShillOrder, error) {
	filter := &repository.ShillOrderFilter{}
	if req != nil {
		if req.Window != nil {
			if req.Window.IsEmpty() {
				return []*models.ShillOrder{}, nil
			}
			filter.Start = &req.Window.Start
			filter.End = &req.Window.End
		}
		filter.Settled = req.Settled
	}
	orders, err := s.shillRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return orders, nil
}

// Totals 窗口内刷单佣金与平台费合计
type Totals struct {
	Count       int             `json:"count"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
}

// Summarize 汇总窗口内的刷单
func (s *ShillOrderService) Summarize(ctx context.Context, w period.Window) (*Totals, error) {
	orders, err := s.List(ctx, &ListRequest{Window: &w})
	if err != nil {
		return nil, err
	}
	t := &Totals{Count: len(orders)}
	for _, o := range orders {
		t.Amount = t.Amount.Add(o.Amount)
		t.Commission = t.Commission.Add(o.Commission)
		t.PlatformFee = t.PlatformFee.Add(o.PlatformFee)
	}
	return t, nil
}
