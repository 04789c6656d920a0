// Package customer 提供客户管理服务
package customer

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
)

// CustomerService 客户服务
type CustomerService struct {
	db           *gorm.DB
	customerRepo *repository.CustomerRepository
	courseRepo   *repository.CourseRepository
	refundRepo   *repository.RefundRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(
	db *gorm.DB,
	customerRepo *repository.CustomerRepository,
	courseRepo *repository.CourseRepository,
	refundRepo *repository.RefundRepository,
) *CustomerService {
	return &CustomerService{
		db:           db,
		customerRepo: customerRepo,
		courseRepo:   courseRepo,
		refundRepo:   refundRepo,
	}
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name   string  `json:"name" validate:"required,max=50"`
	Phone  string  `json:"phone" validate:"required,max=20"`
	Grade  *string `json:"grade" validate:"omitempty,max=20"`
	Region *string `json:"region" validate:"omitempty,max=50"`
	Source *string `json:"source" validate:"omitempty,max=50"`
}

// UpdateCustomerRequest 更新客户请求，空字段不修改
type UpdateCustomerRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=50"`
	Phone  *string `json:"phone" validate:"omitempty,min=1,max=20"`
	Grade  *string `json:"grade" validate:"omitempty,max=20"`
	Region *string `json:"region" validate:"omitempty,max=50"`
	Source *string `json:"source" validate:"omitempty,max=50"`
}

// ListRequest 客户列表请求
type ListRequest struct {
	Keyword  string `form:"keyword"`
	Source   string `form:"source"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListResult 客户列表
type ListResult struct {
	List     []*models.Customer `json:"list"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// Create 创建客户，手机号规范化后唯一
func (s *CustomerService) Create(ctx context.Context, req *CreateCustomerRequest) (*models.Customer, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return nil, errors.ErrPhoneInvalid
	}

	customer := &models.Customer{
		Name:   strings.TrimSpace(req.Name),
		Phone:  phone,
		Grade:  req.Grade,
		Region: req.Region,
		Source: req.Source,
	}

	err = database.Transaction(ctx, s.db, "customer", func(tx *gorm.DB) error {
		repo := s.customerRepo.WithTx(tx)
		exists, err := repo.ExistsByPhone(ctx, phone, 0)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return errors.ErrDuplicatePhone
		}
		if err := repo.Create(ctx, customer); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDuplicatePhone
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("customer created", logger.Module("customer"), logger.CustomerID(customer.ID))
	return customer, nil
}

// Get 获取客户
func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCustomerNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return customer, nil
}

// Update 更新客户
func (s *CustomerService) Update(ctx context.Context, id int64, req *UpdateCustomerRequest) (*models.Customer, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var customer *models.Customer
	err := database.Transaction(ctx, s.db, "customer", func(tx *gorm.DB) error {
		repo := s.customerRepo.WithTx(tx)
		var err error
		customer, err = repo.GetByID(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrCustomerNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		if req.Phone != nil {
			phone, err := utils.NormalizePhone(*req.Phone)
			if err != nil {
				return errors.ErrPhoneInvalid
			}
			exists, err := repo.ExistsByPhone(ctx, phone, id)
			if err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
			if exists {
				return errors.ErrDuplicatePhone
			}
			customer.Phone = phone
		}
		if req.Name != nil {
			customer.Name = strings.TrimSpace(*req.Name)
		}
		if req.Grade != nil {
			customer.Grade = req.Grade
		}
		if req.Region != nil {
			customer.Region = req.Region
		}
		if req.Source != nil {
			customer.Source = req.Source
		}

		if err := repo.Update(ctx, customer); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDuplicatePhone
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// List 获取客户列表
func (s *CustomerService) List(ctx context.Context, req *ListRequest) (*ListResult, error) {
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()

	customers, total, err := s.customerRepo.List(ctx, &repository.CustomerFilter{
		Keyword: strings.TrimSpace(req.Keyword),
		Source:  req.Source,
	}, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return &ListResult{List: customers, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// Delete 删除客户及其课程和退费记录
//
// 其他课程指向被删课程的转化、续课引用置空，不级联删除。
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.Start(ctx, "customer.Delete", tracing.WithCustomerID(id))
	var err error
	defer func() { tracing.End(span, err) }()

	var courseIDs []int64
	err = database.Transaction(ctx, s.db, "customer", func(tx *gorm.DB) error {
		customerRepo := s.customerRepo.WithTx(tx)
		courseRepo := s.courseRepo.WithTx(tx)

		if _, err := customerRepo.GetByID(ctx, id); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrCustomerNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		var err error
		courseIDs, err = courseRepo.IDsByCustomer(ctx, id)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := s.refundRepo.WithTx(tx).DeleteByCourses(ctx, courseIDs); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := courseRepo.ClearWeakReferences(ctx, courseIDs); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := courseRepo.Delete(ctx, courseIDs...); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := customerRepo.Delete(ctx, id); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("customer deleted",
		logger.Module("customer"),
		logger.CustomerID(id),
		logger.Int("course_count", len(courseIDs)),
	)
	return nil
}
