package course

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/cache"
	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// maxRenewalDepth 追溯续课链的最大层数
const maxRenewalDepth = 64

// CourseService 课程服务
type CourseService struct {
	db           *gorm.DB
	courseRepo   *repository.CourseRepository
	customerRepo *repository.CustomerRepository
	refundRepo   *repository.RefundRepository
	employeeRepo *repository.EmployeeRepository
	registry     *setting.Registry
	locker       cache.Locker
}

// NewCourseService 创建课程服务，locker 为空时只依赖数据库唯一约束
func NewCourseService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	customerRepo *repository.CustomerRepository,
	refundRepo *repository.RefundRepository,
	employeeRepo *repository.EmployeeRepository,
	registry *setting.Registry,
	locker cache.Locker,
) *CourseService {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	return &CourseService{
		db:           db,
		courseRepo:   courseRepo,
		customerRepo: customerRepo,
		refundRepo:   refundRepo,
		employeeRepo: employeeRepo,
		registry:     registry,
		locker:       locker,
	}
}

// CreateTrialRequest 创建试听课请求
type CreateTrialRequest struct {
	CustomerID         int64               `json:"customer_id" validate:"gt=0"`
	AssignedEmployeeID *int64              `json:"assigned_employee_id"`
	TrialPrice         decimal.Decimal     `json:"trial_price" validate:"gte=0"`
	Source             string              `json:"source" validate:"max=50"`
	TrialStatus        string              `json:"trial_status"`
	CustomTrialCost    decimal.NullDecimal `json:"custom_trial_cost" validate:"omitempty,gte=0"`
}

// FormalPayload 正课内容，新课、转化、续课共用
type FormalPayload struct {
	AssignedEmployeeID *int64                 `json:"assigned_employee_id"`
	CourseType         string                 `json:"course_type" validate:"max=50"`
	Sessions           int                    `json:"sessions" validate:"gt=0"`
	GiftSessions       int                    `json:"gift_sessions" validate:"gte=0"`
	UnitPrice          decimal.Decimal        `json:"unit_price" validate:"gte=0"`
	OtherCost          decimal.Decimal        `json:"other_cost" validate:"gte=0"`
	PaymentChannel     string                 `json:"payment_channel" validate:"max=20"`
	CustomCourseCost   decimal.NullDecimal    `json:"custom_course_cost" validate:"omitempty,gte=0"`
	Meta               map[string]interface{} `json:"meta"`
}

// CreateFormalRequest 创建正课请求
type CreateFormalRequest struct {
	CustomerID int64 `json:"customer_id" validate:"gt=0"`
	FormalPayload
}

// UpdateTrialRequest 更新试听课请求，空字段不修改
type UpdateTrialRequest struct {
	AssignedEmployeeID *int64           `json:"assigned_employee_id"`
	TrialPrice         *decimal.Decimal `json:"trial_price" validate:"omitempty,gte=0"`
	Source             *string          `json:"source" validate:"omitempty,max=50"`
	CustomTrialCost    *decimal.Decimal `json:"custom_trial_cost" validate:"omitempty,gte=0"`
	// ClearCustomTrialCost 清除自定义成本，恢复使用配置值
	ClearCustomTrialCost bool `json:"clear_custom_trial_cost"`
}

// UpdateFormalRequest 更新正课请求，空字段不修改
type UpdateFormalRequest struct {
	AssignedEmployeeID    *int64                 `json:"assigned_employee_id"`
	CourseType            *string                `json:"course_type" validate:"omitempty,max=50"`
	Sessions              *int                   `json:"sessions" validate:"omitempty,gt=0"`
	GiftSessions          *int                   `json:"gift_sessions" validate:"omitempty,gte=0"`
	UnitPrice             *decimal.Decimal       `json:"unit_price" validate:"omitempty,gte=0"`
	OtherCost             *decimal.Decimal       `json:"other_cost" validate:"omitempty,gte=0"`
	PaymentChannel        *string                `json:"payment_channel" validate:"omitempty,max=20"`
	CustomCourseCost      *decimal.Decimal       `json:"custom_course_cost" validate:"omitempty,gte=0"`
	ClearCustomCourseCost bool                   `json:"clear_custom_course_cost"`
	Meta                  map[string]interface{} `json:"meta"`
}

// ConversionResult 试听课转化结果
type ConversionResult struct {
	Trial  *models.Course `json:"trial"`
	Formal *models.Course `json:"formal"`
}

// CreateTrial 创建试听课，每个客户最多一节
func (s *CourseService) CreateTrial(ctx context.Context, req *CreateTrialRequest) (*models.Course, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	status := req.TrialStatus
	if status == "" {
		status = models.TrialStatusRegistered
	}
	if !IsInitialStatus(status) {
		return nil, errors.ErrInvalidParams.WithMessage("试听课初始状态无效: " + status)
	}

	ctx, span := tracing.Start(ctx, "course.CreateTrial", tracing.WithCustomerID(req.CustomerID))
	var err error
	defer func() { tracing.End(span, err) }()

	customerID := req.CustomerID
	course := &models.Course{
		Kind:               models.CourseKindTrial,
		CustomerID:         customerID,
		AssignedEmployeeID: req.AssignedEmployeeID,
		TrialCustomerID:    &customerID,
		TrialPrice:         req.TrialPrice,
		Source:             strings.TrimSpace(req.Source),
		TrialStatus:        status,
		CustomTrialCost:    req.CustomTrialCost,
	}

	lockKey := cache.BuildKey(cache.KeyPrefixTrialGuard, strconv.FormatInt(customerID, 10))
	err = s.locker.WithLock(ctx, lockKey, func() error {
		return database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
			if err := s.checkOwners(ctx, tx, customerID, req.AssignedEmployeeID); err != nil {
				return err
			}
			repo := s.courseRepo.WithTx(tx)
			if _, err := repo.GetTrialByCustomer(ctx, customerID); err == nil {
				return errors.ErrTrialAlreadyExists
			} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrDatabaseError.WithError(err)
			}
			if err := repo.Create(ctx, course); err != nil {
				if stderrors.Is(err, gorm.ErrDuplicatedKey) {
					return errors.ErrTrialAlreadyExists
				}
				return errors.ErrDatabaseError.WithError(err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("trial course created",
		logger.Module("course"),
		logger.CustomerID(customerID),
		logger.CourseID(course.ID),
	)
	return course, nil
}

// CreateFormal 创建新签正课，创建时写入成本和手续费率快照
func (s *CourseService) CreateFormal(ctx context.Context, req *CreateFormalRequest) (*models.Course, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "course.CreateFormal", tracing.WithCustomerID(req.CustomerID))
	var err error
	defer func() { tracing.End(span, err) }()

	rates, err := s.registry.SnapshotRates(ctx)
	if err != nil {
		return nil, err
	}
	var course *models.Course
	err = database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		if err := s.checkOwners(ctx, tx, req.CustomerID, req.AssignedEmployeeID); err != nil {
			return err
		}
		var err error
		course, err = newFormal(req.CustomerID, &req.FormalPayload, rates)
		if err != nil {
			return err
		}
		if err := s.courseRepo.WithTx(tx).Create(ctx, course); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("formal course created",
		logger.Module("course"),
		logger.CustomerID(course.CustomerID),
		logger.CourseID(course.ID),
	)
	return course, nil
}

// ConvertTrial 试听课转正课，在同一事务中创建正课并回写双向引用
func (s *CourseService) ConvertTrial(ctx context.Context, trialID int64, payload *FormalPayload) (*ConversionResult, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	p := *payload
	payload = &p

	ctx, span := tracing.Start(ctx, "course.ConvertTrial", tracing.WithCourseID(trialID))
	var err error
	defer func() { tracing.End(span, err) }()

	rates, err := s.registry.SnapshotRates(ctx)
	if err != nil {
		return nil, err
	}
	result := &ConversionResult{}
	err = database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		trial, err := s.lockCourse(ctx, repo, trialID)
		if err != nil {
			return err
		}
		if !trial.IsTrial() {
			return errors.ErrNotTrial
		}
		if trial.ConvertedToCourseID != nil {
			return errors.ErrAlreadyConverted
		}
		if !CanTransition(trial.TrialStatus, models.TrialStatusConverted) {
			return errors.ErrInvalidTransition.WithMessage("当前状态不能转化: " + trial.TrialStatus)
		}
		if payload.AssignedEmployeeID == nil {
			payload.AssignedEmployeeID = trial.AssignedEmployeeID
		} else if err := s.checkEmployee(ctx, tx, payload.AssignedEmployeeID); err != nil {
			return err
		}

		formal, err := newFormal(trial.CustomerID, payload, rates)
		if err != nil {
			return err
		}
		formal.ConvertedFromTrialID = &trial.ID
		if err := repo.Create(ctx, formal); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		if err := repo.UpdateFields(ctx, trial.ID, map[string]interface{}{
			"converted_to_course_id": formal.ID,
			"trial_status":           models.TrialStatusConverted,
		}); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		trial.ConvertedToCourseID = &formal.ID
		trial.TrialStatus = models.TrialStatusConverted

		result.Trial = trial
		result.Formal = formal
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("trial converted",
		logger.Module("course"),
		logger.CourseID(trialID),
		logger.Int64("formal_course_id", result.Formal.ID),
	)
	return result, nil
}

// CreateRenewal 基于已有正课创建续课，续课的续课指向链首正课
func (s *CourseService) CreateRenewal(ctx context.Context, fromID int64, payload *FormalPayload) (*models.Course, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	p := *payload
	payload = &p

	ctx, span := tracing.Start(ctx, "course.CreateRenewal", tracing.WithCourseID(fromID))
	var err error
	defer func() { tracing.End(span, err) }()

	rates, err := s.registry.SnapshotRates(ctx)
	if err != nil {
		return nil, err
	}
	var renewal *models.Course
	err = database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		pred, err := s.lockCourse(ctx, repo, fromID)
		if err != nil {
			return err
		}
		if pred.IsTrial() {
			return errors.ErrRenewalFromTrial
		}
		root, err := s.renewalRoot(ctx, repo, pred)
		if err != nil {
			return err
		}
		if payload.AssignedEmployeeID == nil {
			payload.AssignedEmployeeID = pred.AssignedEmployeeID
		} else if err := s.checkEmployee(ctx, tx, payload.AssignedEmployeeID); err != nil {
			return err
		}

		renewal, err = newFormal(pred.CustomerID, payload, rates)
		if err != nil {
			return err
		}
		renewal.IsRenewal = true
		renewal.RenewalFromCourseID = &root.ID
		if err := repo.Create(ctx, renewal); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("renewal created",
		logger.Module("course"),
		logger.CourseID(renewal.ID),
		logger.Int64("renewal_from_course_id", *renewal.RenewalFromCourseID),
	)
	return renewal, nil
}

// renewalRoot 沿续课链找到非续课的正课，链断开时退回直接前驱
func (s *CourseService) renewalRoot(ctx context.Context, repo *repository.CourseRepository, pred *models.Course) (*models.Course, error) {
	current := pred
	for depth := 0; current.IsRenewal && depth < maxRenewalDepth; depth++ {
		if current.RenewalFromCourseID == nil {
			return pred, nil
		}
		next, err := repo.GetByID(ctx, *current.RenewalFromCourseID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return pred, nil
			}
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if next.IsTrial() {
			return pred, nil
		}
		current = next
	}
	if current.IsRenewal {
		return pred, nil
	}
	return current, nil
}

// UpdateTrialStatus 修改试听课状态，转化只能通过 ConvertTrial
func (s *CourseService) UpdateTrialStatus(ctx context.Context, id int64, status string) (*models.Course, error) {
	if !IsValidStatus(status) {
		return nil, errors.ErrInvalidParams.WithMessage("未知的试听课状态: " + status)
	}
	if status == models.TrialStatusConverted {
		return nil, errors.ErrInvalidTransition.WithMessage("请通过转化操作将试听课转为正课")
	}

	var course *models.Course
	err := database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		var err error
		course, err = s.lockCourse(ctx, repo, id)
		if err != nil {
			return err
		}
		if !course.IsTrial() {
			return errors.ErrNotTrial
		}
		if course.TrialStatus == status {
			return nil
		}
		if !CanTransition(course.TrialStatus, status) {
			return errors.ErrInvalidTransition.WithMessage(
				"试听课状态不能从 " + course.TrialStatus + " 变为 " + status)
		}
		if err := repo.UpdateFields(ctx, id, map[string]interface{}{"trial_status": status}); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		course.TrialStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("trial status updated",
		logger.Module("course"),
		logger.CourseID(id),
		logger.String("status", status),
	)
	return course, nil
}

// UpdateTrial 修改试听课信息
func (s *CourseService) UpdateTrial(ctx context.Context, id int64, req *UpdateTrialRequest) (*models.Course, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var course *models.Course
	err := database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		var err error
		course, err = s.lockCourse(ctx, repo, id)
		if err != nil {
			return err
		}
		if !course.IsTrial() {
			return errors.ErrNotTrial
		}
		if req.AssignedEmployeeID != nil {
			if err := s.checkEmployee(ctx, tx, req.AssignedEmployeeID); err != nil {
				return err
			}
			course.AssignedEmployeeID = req.AssignedEmployeeID
		}
		if req.TrialPrice != nil {
			course.TrialPrice = *req.TrialPrice
		}
		if req.Source != nil {
			course.Source = strings.TrimSpace(*req.Source)
		}
		switch {
		case req.ClearCustomTrialCost:
			course.CustomTrialCost = decimal.NullDecimal{}
		case req.CustomTrialCost != nil:
			course.CustomTrialCost = utils.NullDecimal(*req.CustomTrialCost)
		}
		if err := repo.Save(ctx, course); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// UpdateFormal 修改正课信息，空快照按当前配置补齐，课时不能少于已退课时
func (s *CourseService) UpdateFormal(ctx context.Context, id int64, req *UpdateFormalRequest) (*models.Course, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	rates, err := s.registry.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	var course *models.Course
	err = database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		var err error
		course, err = s.lockCourse(ctx, repo, id)
		if err != nil {
			return err
		}
		if !course.IsFormal() {
			return errors.ErrInvalidParams.WithMessage("该课程不是正课")
		}

		if req.Sessions != nil {
			totals, err := s.refundRepo.WithTx(tx).CompletedTotals(ctx, id)
			if err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
			if *req.Sessions < totals.Sessions {
				return errors.ErrSessionsBelowRefund
			}
			course.Sessions = *req.Sessions
		}
		if req.AssignedEmployeeID != nil {
			if err := s.checkEmployee(ctx, tx, req.AssignedEmployeeID); err != nil {
				return err
			}
			course.AssignedEmployeeID = req.AssignedEmployeeID
		}
		if req.CourseType != nil {
			course.CourseType = strings.TrimSpace(*req.CourseType)
		}
		if req.GiftSessions != nil {
			course.GiftSessions = *req.GiftSessions
		}
		if req.UnitPrice != nil {
			course.UnitPrice = *req.UnitPrice
		}
		if req.OtherCost != nil {
			course.OtherCost = *req.OtherCost
		}
		if req.PaymentChannel != nil {
			course.PaymentChannel = strings.TrimSpace(*req.PaymentChannel)
		}
		switch {
		case req.ClearCustomCourseCost:
			course.CustomCourseCost = decimal.NullDecimal{}
		case req.CustomCourseCost != nil:
			course.CustomCourseCost = utils.NullDecimal(*req.CustomCourseCost)
		}
		if req.Meta != nil {
			meta, err := encodeMeta(req.Meta)
			if err != nil {
				return err
			}
			course.Meta = meta
		}

		backfillSnapshots(course, rates)
		if err := repo.Save(ctx, course); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// Delete 删除课程及其退费记录，指向它的转化、续课引用置空
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	err := database.Transaction(ctx, s.db, "course", func(tx *gorm.DB) error {
		repo := s.courseRepo.WithTx(tx)
		if _, err := s.lockCourse(ctx, repo, id); err != nil {
			return err
		}
		if err := s.refundRepo.WithTx(tx).DeleteByCourses(ctx, []int64{id}); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := repo.ClearWeakReferences(ctx, []int64{id}); err != nil {
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
	logger.Info("course deleted", logger.Module("course"), logger.CourseID(id))
	return nil
}

// Get 获取课程
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCourseNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return course, nil
}

// RemainingSessions 正课剩余可退课时
func (s *CourseService) RemainingSessions(ctx context.Context, id int64) (int, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !course.IsFormal() {
		return 0, errors.ErrRefundNotFormal
	}
	totals, err := s.refundRepo.CompletedTotals(ctx, id)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	return course.Sessions - totals.Sessions, nil
}

// newFormal 按当前配置构造带快照的正课
func newFormal(customerID int64, p *FormalPayload, rates setting.Rates) (*models.Course, error) {
	course := &models.Course{
		Kind:               models.CourseKindFormal,
		CustomerID:         customerID,
		AssignedEmployeeID: p.AssignedEmployeeID,
		CourseType:         strings.TrimSpace(p.CourseType),
		Sessions:           p.Sessions,
		GiftSessions:       p.GiftSessions,
		UnitPrice:          p.UnitPrice,
		OtherCost:          p.OtherCost,
		PaymentChannel:     strings.TrimSpace(p.PaymentChannel),
		CustomCourseCost:   p.CustomCourseCost,
		SnapshotCourseCost: utils.NullDecimal(rates.CourseCost),
		SnapshotFeeRate:    utils.NullDecimal(rates.TaobaoFeeRate),
	}
	if p.Meta != nil {
		meta, err := encodeMeta(p.Meta)
		if err != nil {
			return nil, err
		}
		course.Meta = meta
	}
	return course, nil
}

// backfillSnapshots 补齐历史数据缺失的快照
func backfillSnapshots(course *models.Course, rates setting.Rates) {
	if !course.SnapshotCourseCost.Valid {
		course.SnapshotCourseCost = utils.NullDecimal(rates.CourseCost)
	}
	if !course.SnapshotFeeRate.Valid {
		course.SnapshotFeeRate = utils.NullDecimal(rates.TaobaoFeeRate)
	}
}

func (s *CourseService) lockCourse(ctx context.Context, repo *repository.CourseRepository, id int64) (*models.Course, error) {
	course, err := repo.GetByIDForUpdate(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCourseNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return course, nil
}

// checkOwners 校验客户和负责员工存在
func (s *CourseService) checkOwners(ctx context.Context, tx *gorm.DB, customerID int64, employeeID *int64) error {
	if _, err := s.customerRepo.WithTx(tx).GetByID(ctx, customerID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrCustomerNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return s.checkEmployee(ctx, tx, employeeID)
}

func (s *CourseService) checkEmployee(ctx context.Context, tx *gorm.DB, employeeID *int64) error {
	if employeeID == nil {
		return nil
	}
	if _, err := s.employeeRepo.WithTx(tx).GetByID(ctx, *employeeID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrEmployeeNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

func encodeMeta(meta map[string]interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("meta 不是合法的 JSON")
	}
	return datatypes.JSON(b), nil
}
