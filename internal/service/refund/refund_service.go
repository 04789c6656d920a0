// Package refund 提供正课退费的校验、报价、登记和取消
package refund

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
)

// RefundService 退费服务
type RefundService struct {
	db         *gorm.DB
	courseRepo *repository.CourseRepository
	refundRepo *repository.RefundRepository
	now        func() time.Time
}

// NewRefundService 创建退费服务
func NewRefundService(db *gorm.DB, courseRepo *repository.CourseRepository, refundRepo *repository.RefundRepository) *RefundService {
	return &RefundService{
		db:         db,
		courseRepo: courseRepo,
		refundRepo: refundRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Quote 退费报价
type Quote struct {
	CourseID                   int64           `json:"course_id"`
	UnitPrice                  decimal.Decimal `json:"unit_price"`
	RequestedSessions          int             `json:"requested_sessions"`
	GrossAmount                decimal.Decimal `json:"gross_amount"`
	RemainingSessions          int             `json:"remaining_sessions"`
	AfterRefundSessions        int             `json:"after_refund_sessions"`
	AfterRefundAmount          decimal.Decimal `json:"after_refund_amount"`
	PreviouslyRefundedSessions int             `json:"previously_refunded_sessions"`
	PreviouslyRefundedAmount   decimal.Decimal `json:"previously_refunded_amount"`
}

// ApplyRequest 退费请求
type ApplyRequest struct {
	Sessions int `json:"refund_sessions"`
	// Amount 为空时按单价乘以退费课时计算
	Amount       decimal.NullDecimal `json:"refund_amount" validate:"omitempty,gt=0"`
	Fee          decimal.Decimal     `json:"refund_fee" validate:"gte=0"`
	Channel      string              `json:"refund_channel" validate:"max=20"`
	Reason       *string             `json:"refund_reason" validate:"omitempty,max=255"`
	RefundDate   *time.Time          `json:"refund_date"`
	OperatorName *string             `json:"operator_name" validate:"omitempty,max=50"`
	Remark       *string             `json:"remark" validate:"omitempty,max=255"`
}

// History 课程退费历史
type History struct {
	CourseID          int64                  `json:"course_id"`
	Sessions          int                    `json:"sessions"`
	RemainingSessions int                    `json:"remaining_sessions"`
	RefundedSessions  int                    `json:"refunded_sessions"`
	RefundedAmount    decimal.Decimal        `json:"refunded_amount"`
	RefundedFee       decimal.Decimal        `json:"refunded_fee"`
	Refunds           []*models.CourseRefund `json:"refunds"`
}

// Validate 校验课程能否退 sessions 节课
func (s *RefundService) Validate(ctx context.Context, courseID int64, sessions int) error {
	course, totals, err := s.load(ctx, s.courseRepo, s.refundRepo, courseID, false)
	if err != nil {
		return err
	}
	return check(course, totals, sessions)
}

// Quote 计算退费报价，不写入数据
func (s *RefundService) Quote(ctx context.Context, courseID int64, sessions int) (*Quote, error) {
	course, totals, err := s.load(ctx, s.courseRepo, s.refundRepo, courseID, false)
	if err != nil {
		return nil, err
	}
	if err := check(course, totals, sessions); err != nil {
		return nil, err
	}

	gross := course.UnitPrice.Mul(decimal.NewFromInt(int64(sessions)))
	original := course.UnitPrice.Mul(decimal.NewFromInt(int64(course.Sessions)))
	remaining := course.Sessions - totals.Sessions
	return &Quote{
		CourseID:                   course.ID,
		UnitPrice:                  course.UnitPrice,
		RequestedSessions:          sessions,
		GrossAmount:                gross,
		RemainingSessions:          remaining,
		AfterRefundSessions:        remaining - sessions,
		AfterRefundAmount:          original.Sub(totals.Amount).Sub(gross),
		PreviouslyRefundedSessions: totals.Sessions,
		PreviouslyRefundedAmount:   totals.Amount,
	}, nil
}

// Apply 登记退费，课程行锁下重新校验剩余课时
//
// 退费手续费为机构扣留部分，只减少客户到手金额，不计入成本。
func (s *RefundService) Apply(ctx context.Context, courseID int64, req *ApplyRequest) (*models.CourseRefund, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "refund.Apply", tracing.WithCourseID(courseID))
	var err error
	defer func() { tracing.End(span, err) }()

	var refund *models.CourseRefund
	err = database.Transaction(ctx, s.db, "refund", func(tx *gorm.DB) error {
		refundRepo := s.refundRepo.WithTx(tx)
		course, totals, err := s.load(ctx, s.courseRepo.WithTx(tx), refundRepo, courseID, true)
		if err != nil {
			return err
		}
		if err := check(course, totals, req.Sessions); err != nil {
			return err
		}

		amount := course.UnitPrice.Mul(decimal.NewFromInt(int64(req.Sessions)))
		if req.Amount.Valid {
			amount = req.Amount.Decimal
		}
		if !amount.IsPositive() {
			return errors.ErrRefundAmountInvalid.WithMessage("退费金额必须大于0")
		}
		if req.Fee.GreaterThan(amount) {
			return errors.ErrRefundAmountInvalid.WithMessage("退费手续费不能超过退费金额")
		}

		channel := strings.TrimSpace(req.Channel)
		if channel == "" {
			channel = course.PaymentChannel
		}
		refundDate := s.now()
		if req.RefundDate != nil {
			refundDate = req.RefundDate.UTC()
		}

		refund = &models.CourseRefund{
			CourseID:       courseID,
			RefundSessions: req.Sessions,
			RefundAmount:   amount,
			RefundFee:      req.Fee,
			RefundChannel:  channel,
			RefundReason:   req.Reason,
			RefundDate:     refundDate,
			Status:         models.RefundStatusCompleted,
			OperatorName:   req.OperatorName,
			Remark:         req.Remark,
		}
		if err := refundRepo.Create(ctx, refund); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	amount, _ := refund.RefundAmount.Float64()
	metrics.RecordRefundGlobal("apply", amount)
	logger.Info("refund applied",
		logger.Module("refund"),
		logger.CourseID(courseID),
		logger.RefundID(refund.ID),
		logger.Int("sessions", refund.RefundSessions),
		logger.String("amount", refund.RefundAmount.String()),
	)
	return refund, nil
}

// Cancel 取消退费，保留记录
func (s *RefundService) Cancel(ctx context.Context, refundID int64, reason *string) (*models.CourseRefund, error) {
	ctx, span := tracing.Start(ctx, "refund.Cancel", tracing.WithRefundID(refundID))
	var err error
	defer func() { tracing.End(span, err) }()

	var refund *models.CourseRefund
	err = database.Transaction(ctx, s.db, "refund", func(tx *gorm.DB) error {
		repo := s.refundRepo.WithTx(tx)
		var err error
		refund, err = repo.GetByID(ctx, refundID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrRefundNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		// 与同课程的退费登记串行
		if _, err := s.courseRepo.WithTx(tx).GetByIDForUpdate(ctx, refund.CourseID); err != nil &&
			!stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrDatabaseError.WithError(err)
		}
		if refund, err = repo.GetByIDForUpdate(ctx, refundID); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if refund.Status == models.RefundStatusCancelled {
			return errors.ErrRefundAlreadyCancelled
		}

		at := s.now()
		if err := repo.MarkCancelled(ctx, refundID, reason, at); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		refund.Status = models.RefundStatusCancelled
		refund.CancelReason = reason
		refund.CancelledAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRefundGlobal("cancel", 0)
	logger.Info("refund cancelled",
		logger.Module("refund"),
		logger.CourseID(refund.CourseID),
		logger.RefundID(refundID),
	)
	return refund, nil
}

// History 获取课程退费历史，含已取消记录
func (s *RefundService) History(ctx context.Context, courseID int64) (*History, error) {
	course, totals, err := s.load(ctx, s.courseRepo, s.refundRepo, courseID, false)
	if err != nil {
		return nil, err
	}
	refunds, err := s.refundRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return &History{
		CourseID:          courseID,
		Sessions:          course.Sessions,
		RemainingSessions: course.Sessions - totals.Sessions,
		RefundedSessions:  totals.Sessions,
		RefundedAmount:    totals.Amount,
		RefundedFee:       totals.Fee,
		Refunds:           refunds,
	}, nil
}

// load 读取课程和已完成退费汇总，lock 为 true 时对课程加行锁
func (s *RefundService) load(
	ctx context.Context,
	courseRepo *repository.CourseRepository,
	refundRepo *repository.RefundRepository,
	courseID int64,
	lock bool,
) (*models.Course, repository.RefundTotals, error) {
	var (
		course *models.Course
		err    error
	)
	if lock {
		course, err = courseRepo.GetByIDForUpdate(ctx, courseID)
	} else {
		course, err = courseRepo.GetByID(ctx, courseID)
	}
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.RefundTotals{}, errors.ErrCourseNotFound
		}
		return nil, repository.RefundTotals{}, errors.ErrDatabaseError.WithError(err)
	}
	if !course.IsFormal() {
		return course, repository.RefundTotals{}, nil
	}
	totals, err := refundRepo.CompletedTotals(ctx, courseID)
	if err != nil {
		return nil, repository.RefundTotals{}, errors.ErrDatabaseError.WithError(err)
	}
	return course, totals, nil
}

// check 退费规则：只退正课，课时为正且不超过剩余课时
func check(course *models.Course, totals repository.RefundTotals, sessions int) error {
	if !course.IsFormal() {
		return errors.ErrRefundNotFormal
	}
	if sessions <= 0 {
		return errors.ErrRefundNotPositive
	}
	remaining := course.Sessions - totals.Sessions
	if sessions > remaining {
		return errors.ErrRefundExceedsRemaining.WithMessage(
			"退费课时超过剩余课时，剩余 " + strconv.Itoa(remaining) + " 节")
	}
	return nil
}
