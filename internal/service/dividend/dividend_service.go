// Package dividend 提供股东分红记录和汇总
package dividend

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
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/common/validate"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/finance"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// DividendService 分红服务
type DividendService struct {
	db       *gorm.DB
	repo     *repository.DividendRepository
	reports  *finance.ReportService
	registry *setting.Registry
}

// NewDividendService 创建分红服务
func NewDividendService(
	db *gorm.DB,
	repo *repository.DividendRepository,
	reports *finance.ReportService,
	registry *setting.Registry,
) *DividendService {
	return &DividendService{
		db:       db,
		repo:     repo,
		reports:  reports,
		registry: registry,
	}
}

// CreateRequest 创建分红记录请求
type CreateRequest struct {
	ShareholderName     string              `json:"shareholder_name" validate:"required,max=50"`
	PeriodYear          int                 `json:"period_year"`
	PeriodMonth         int                 `json:"period_month"`
	CalculatedProfit    decimal.Decimal     `json:"calculated_profit"`
	ActualDividend      decimal.Decimal     `json:"actual_dividend"`
	DividendDate        time.Time           `json:"dividend_date"`
	Status              string              `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	SnapshotTotalProfit decimal.NullDecimal `json:"snapshot_total_profit"`
	SnapshotProfitRatio decimal.NullDecimal `json:"snapshot_profit_ratio"`
	PaymentMethod       *string             `json:"payment_method" validate:"omitempty,max=20"`
	Remarks             *string             `json:"remarks" validate:"omitempty,max=255"`
}

// UpdateRequest 更新分红记录请求，空字段不修改
type UpdateRequest struct {
	ShareholderName  *string          `json:"shareholder_name" validate:"omitempty,min=1,max=50"`
	PeriodYear       *int             `json:"period_year"`
	PeriodMonth      *int             `json:"period_month"`
	CalculatedProfit *decimal.Decimal `json:"calculated_profit"`
	ActualDividend   *decimal.Decimal `json:"actual_dividend"`
	DividendDate     *time.Time       `json:"dividend_date"`
	Status           *string          `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	PaymentMethod    *string          `json:"payment_method" validate:"omitempty,max=20"`
	Remarks          *string          `json:"remarks" validate:"omitempty,max=255"`
}

// RecordFilter 分红记录过滤条件
type RecordFilter struct {
	ShareholderName string `form:"shareholder"`
	Year            *int   `form:"year"`
	Month           *int   `form:"month"`
	Status          string `form:"status"`
}

// ShareholderInfo 股东信息
type ShareholderInfo struct {
	Name    string                  `json:"name"`
	Ratio   decimal.Decimal         `json:"ratio"`
	Summary *models.DividendSummary `json:"summary"`
}

// Stats 分红统计
type Stats struct {
	Summaries       []*models.DividendSummary `json:"summaries"`
	TotalCalculated decimal.Decimal           `json:"total_calculated"`
	TotalPaid       decimal.Decimal           `json:"total_paid"`
	TotalPending    decimal.Decimal           `json:"total_pending"`
	RecordCount     int                       `json:"record_count"`
}

// PreviewShare 单个股东的分红预览
type PreviewShare struct {
	Name             string          `json:"name"`
	Ratio            decimal.Decimal `json:"ratio"`
	CalculatedProfit decimal.Decimal `json:"calculated_profit"`
}

// Preview 月度分红预览
type Preview struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Window       period.Window   `json:"window"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	Shares       []PreviewShare  `json:"shares"`
}

// Shareholders 返回配置的两位股东及其汇总
func (s *DividendService) Shareholders(ctx context.Context) ([]ShareholderInfo, error) {
	nameA, nameB, err := s.registry.Shareholders(ctx)
	if err != nil {
		return nil, err
	}
	ratioA, ratioB, err := s.registry.ShareholderRatios(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]ShareholderInfo, 0, 2)
	for _, sh := range []ShareholderInfo{{Name: nameA, Ratio: ratioA}, {Name: nameB, Ratio: ratioB}} {
		summary, err := s.repo.GetSummary(ctx, sh.Name)
		switch {
		case err == nil:
			sh.Summary = summary
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			sh.Summary = &models.DividendSummary{ShareholderName: sh.Name}
		default:
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		result = append(result, sh)
	}
	return result, nil
}

// Records 查询分红记录
func (s *DividendService) Records(ctx context.Context, filter *RecordFilter) ([]*models.DividendRecord, error) {
	f := &repository.DividendFilter{}
	if filter != nil {
		f.ShareholderName = filter.ShareholderName
		f.Year = filter.Year
		f.Month = filter.Month
		f.Status = filter.Status
	}
	records, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return records, nil
}

// Create 创建分红记录并重建该股东汇总
func (s *DividendService) Create(ctx context.Context, req *CreateRequest) (*models.DividendRecord, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	record := &models.DividendRecord{
		ShareholderName:     strings.TrimSpace(req.ShareholderName),
		PeriodYear:          req.PeriodYear,
		PeriodMonth:         req.PeriodMonth,
		CalculatedProfit:    req.CalculatedProfit,
		ActualDividend:      req.ActualDividend,
		DividendDate:        req.DividendDate.UTC(),
		Status:              req.Status,
		SnapshotTotalProfit: req.SnapshotTotalProfit,
		SnapshotProfitRatio: req.SnapshotProfitRatio,
		PaymentMethod:       req.PaymentMethod,
		Remarks:             req.Remarks,
	}
	if record.Status == "" {
		record.Status = models.DividendStatusPending
	}
	nameA, nameB, err := s.registry.Shareholders(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkRecord(record, nameA, nameB); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "dividend.Create", tracing.WithShareholder(record.ShareholderName))
	defer func() { tracing.End(span, err) }()

	err = database.Transaction(ctx, s.db, "dividend", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsPeriod(ctx, record, 0)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return errors.ErrDividendPeriodExists
		}
		if err := repo.Create(ctx, record); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDividendPeriodExists
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		_, err = rebuildSummary(ctx, repo, record.ShareholderName)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDividendGlobal("create")
	logger.Info("dividend record created",
		logger.Module("dividend"),
		logger.Shareholder(record.ShareholderName),
		logger.Int64("dividend_id", record.ID),
	)
	return record, nil
}

// Update 更新分红记录，涉及的股东汇总在同一事务中重建
func (s *DividendService) Update(ctx context.Context, id int64, req *UpdateRequest) (*models.DividendRecord, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	nameA, nameB, err := s.registry.Shareholders(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "dividend.Update")
	defer func() { tracing.End(span, err) }()

	var record *models.DividendRecord
	err = database.Transaction(ctx, s.db, "dividend", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		record, err = repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrDividendNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		previous := record.ShareholderName

		if req.ShareholderName != nil {
			record.ShareholderName = strings.TrimSpace(*req.ShareholderName)
		}
		if req.PeriodYear != nil {
			record.PeriodYear = *req.PeriodYear
		}
		if req.PeriodMonth != nil {
			record.PeriodMonth = *req.PeriodMonth
		}
		if req.CalculatedProfit != nil {
			record.CalculatedProfit = *req.CalculatedProfit
		}
		if req.ActualDividend != nil {
			record.ActualDividend = *req.ActualDividend
		}
		if req.DividendDate != nil {
			record.DividendDate = req.DividendDate.UTC()
		}
		if req.Status != nil {
			record.Status = *req.Status
		}
		if req.PaymentMethod != nil {
			record.PaymentMethod = req.PaymentMethod
		}
		if req.Remarks != nil {
			record.Remarks = req.Remarks
		}
		if err := checkRecord(record, nameA, nameB); err != nil {
			return err
		}

		exists, err := repo.ExistsPeriod(ctx, record, id)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return errors.ErrDividendPeriodExists
		}
		if err := repo.Update(ctx, record); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDividendPeriodExists
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		if _, err := rebuildSummary(ctx, repo, record.ShareholderName); err != nil {
			return err
		}
		if previous != record.ShareholderName {
			if _, err := rebuildSummary(ctx, repo, previous); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDividendGlobal("update")
	logger.Info("dividend record updated",
		logger.Module("dividend"),
		logger.Shareholder(record.ShareholderName),
		logger.Int64("dividend_id", id),
	)
	return record, nil
}

// Delete 删除分红记录并重建该股东汇总
func (s *DividendService) Delete(ctx context.Context, id int64) error {
	var shareholder string
	err := database.Transaction(ctx, s.db, "dividend", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrDividendNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		shareholder = record.ShareholderName
		if err := repo.Delete(ctx, id); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		_, err = rebuildSummary(ctx, repo, shareholder)
		return err
	})
	if err != nil {
		return err
	}

	metrics.RecordDividendGlobal("delete")
	logger.Info("dividend record deleted",
		logger.Module("dividend"),
		logger.Shareholder(shareholder),
		logger.Int64("dividend_id", id),
	)
	return nil
}

// RebuildSummary 从分红记录重新推导股东汇总
func (s *DividendService) RebuildSummary(ctx context.Context, shareholder string) (*models.DividendSummary, error) {
	var summary *models.DividendSummary
	err := database.Transaction(ctx, s.db, "dividend", func(tx *gorm.DB) error {
		var err error
		summary, err = rebuildSummary(ctx, s.repo.WithTx(tx), shareholder)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ReconcileSummaries 重建当前股东及历史汇总中出现过的全部股东汇总
func (s *DividendService) ReconcileSummaries(ctx context.Context) ([]*models.DividendSummary, error) {
	nameA, nameB, err := s.registry.Shareholders(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	names := []string{nameA, nameB}
	seen := map[string]struct{}{nameA: {}, nameB: {}}
	for _, sm := range existing {
		if _, ok := seen[sm.ShareholderName]; !ok {
			seen[sm.ShareholderName] = struct{}{}
			names = append(names, sm.ShareholderName)
		}
	}

	result := make([]*models.DividendSummary, 0, len(names))
	for _, name := range names {
		summary, err := s.RebuildSummary(ctx, name)
		if err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, nil
}

// Stats 分红统计，shareholder 为空时返回全部股东
func (s *DividendService) Stats(ctx context.Context, shareholder string) (*Stats, error) {
	summaries, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	stats := &Stats{Summaries: []*models.DividendSummary{}}
	for _, sm := range summaries {
		if shareholder != "" && sm.ShareholderName != shareholder {
			continue
		}
		stats.Summaries = append(stats.Summaries, sm)
		stats.TotalCalculated = stats.TotalCalculated.Add(sm.TotalCalculated)
		stats.TotalPaid = stats.TotalPaid.Add(sm.TotalPaid)
		stats.TotalPending = stats.TotalPending.Add(sm.TotalPending)
		stats.RecordCount += sm.RecordCount
	}
	return stats, nil
}

// Preview 按月度综合报表计算两位股东的应分金额，不写入数据
func (s *DividendService) Preview(ctx context.Context, year, month int) (*Preview, error) {
	w, err := period.MonthOf(year, month)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "dividend.Preview", tracing.WithPeriod(w.Start.Format("2006-01")))
	defer func() { tracing.End(span, err) }()

	report, err := s.reports.Comprehensive(ctx, w)
	if err != nil {
		return nil, err
	}
	split := report.Shareholders
	return &Preview{
		Year:         year,
		Month:        month,
		Window:       w,
		TotalRevenue: report.Revenue.TotalRevenue,
		NetProfit:    report.Profit.NetProfit,
		Shares: []PreviewShare{
			{Name: split.A.Name, Ratio: split.A.Ratio, CalculatedProfit: split.A.NetAmount},
			{Name: split.B.Name, Ratio: split.B.Ratio, CalculatedProfit: split.B.NetAmount},
		},
	}, nil
}

// checkRecord 校验股东、金额和日期
func checkRecord(r *models.DividendRecord, nameA, nameB string) error {
	if r.ShareholderName != nameA && r.ShareholderName != nameB {
		return errors.ErrInvalidShareholder.WithMessage("未知的股东: " + r.ShareholderName)
	}
	if r.ActualDividend.IsNegative() {
		return errors.ErrInvalidDividendAmount.WithMessage("实际分红不能为负")
	}
	if r.PeriodYear < 1 || r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		return errors.ErrInvalidDividendDate.WithMessage("分红周期无效")
	}
	if r.DividendDate.IsZero() {
		return errors.ErrInvalidDividendDate.WithMessage("分红日期不能为空")
	}
	switch r.Status {
	case models.DividendStatusPending, models.DividendStatusPaid, models.DividendStatusCancelled:
	default:
		return errors.ErrInvalidParams.WithMessage("无效的分红状态: " + r.Status)
	}
	return nil
}

// rebuildSummary 在 repo 所在事务中重建汇总并写回
func rebuildSummary(ctx context.Context, repo *repository.DividendRepository, shareholder string) (*models.DividendSummary, error) {
	records, err := repo.List(ctx, &repository.DividendFilter{ShareholderName: shareholder})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	summary := DeriveSummary(shareholder, records)
	if err := repo.SaveSummary(ctx, summary); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return summary, nil
}

// DeriveSummary 按分红记录计算股东汇总
func DeriveSummary(shareholder string, records []*models.DividendRecord) *models.DividendSummary {
	summary := &models.DividendSummary{ShareholderName: shareholder}
	for _, r := range records {
		if r.ShareholderName != shareholder {
			continue
		}
		summary.RecordCount++
		summary.TotalCalculated = summary.TotalCalculated.Add(r.CalculatedProfit)
		switch r.Status {
		case models.DividendStatusPaid:
			summary.TotalPaid = summary.TotalPaid.Add(r.ActualDividend)
			if summary.LastDividendDate == nil || r.DividendDate.After(*summary.LastDividendDate) {
				d := r.DividendDate.UTC()
				summary.LastDividendDate = &d
			}
		case models.DividendStatusPending:
			summary.TotalPending = summary.TotalPending.Add(r.ActualDividend)
		}
	}
	return summary
}
