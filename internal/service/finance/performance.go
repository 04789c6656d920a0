package finance

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
)

// TrialPerformance 试听课业绩
type TrialPerformance struct {
	Count    int             `json:"count"`
	ByStatus map[string]int  `json:"by_status"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	// ConversionRate 转化率（百分数）
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

// FormalPerformance 正课与续课业绩
type FormalPerformance struct {
	NewCount       int             `json:"new_count"`
	NewRevenue     decimal.Decimal `json:"new_revenue"`
	NewProfit      decimal.Decimal `json:"new_profit"`
	RenewalCount   int             `json:"renewal_count"`
	RenewalRevenue decimal.Decimal `json:"renewal_revenue"`
	RenewalProfit  decimal.Decimal `json:"renewal_profit"`
}

// ConversionStats 转化统计
type ConversionStats struct {
	TotalTrials     int             `json:"total_trials"`
	CompletedTrials int             `json:"completed_trials"`
	ConvertedCount  int             `json:"converted_count"`
	Rate            decimal.Decimal `json:"rate"`
}

// Performance 员工业绩
type Performance struct {
	EmployeeID   int64             `json:"employee_id"`
	EmployeeName string            `json:"employee_name"`
	Window       period.Window     `json:"window"`
	Trials       TrialPerformance  `json:"trials"`
	Formals      FormalPerformance `json:"formals"`
	Conversion   ConversionStats   `json:"conversion"`
	Commission   Commission        `json:"commission"`
}

// Performance 汇总员工在窗口内的业绩和提成
//
// 只有转化后的正课同样归属该员工时才计入转化数。
func (s *ReportService) Performance(ctx context.Context, employeeID int64, w period.Window) (*Performance, error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "finance.Performance", tracing.WithEmployeeID(employeeID))
	var err error
	defer func() { tracing.End(span, err) }()

	rates, err := s.registry.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	var perf *Performance
	err = database.ReadSnapshot(ctx, s.db, func(tx *gorm.DB) error {
		employee, err := s.employeeRepo.WithTx(tx).GetByID(ctx, employeeID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrEmployeeNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		l, err := s.loadLedger(ctx, tx, w, &employeeID, rates)
		if err != nil {
			return err
		}

		perf = &Performance{
			EmployeeID:   employee.ID,
			EmployeeName: employee.Name,
			Window:       w,
			Trials:       TrialPerformance{ByStatus: map[string]int{}},
		}

		// 窗口内试听课的转化指向
		var targets []int64
		for _, c := range l.courses {
			if c.IsTrial() && c.ConvertedToCourseID != nil {
				targets = append(targets, *c.ConvertedToCourseID)
			}
		}
		converted, err := s.courseRepo.WithTx(tx).GetByIDs(ctx, targets)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		for _, p := range l.profits {
			switch p.Category {
			case models.CourseCategoryTrial:
				perf.Trials.Count++
				perf.Trials.ByStatus[p.TrialStatus]++
				perf.Trials.Revenue = perf.Trials.Revenue.Add(p.ActualRevenue)
				perf.Trials.Profit = perf.Trials.Profit.Add(p.Profit)
				if p.TrialStatus == models.TrialStatusCompleted || p.TrialStatus == models.TrialStatusConverted {
					perf.Conversion.CompletedTrials++
				}
				if t := l.courses[p.CourseID]; t != nil && t.ConvertedToCourseID != nil {
					if f := converted[*t.ConvertedToCourseID]; f != nil && f.IsFormal() && sameEmployee(f.AssignedEmployeeID, employeeID) {
						perf.Conversion.ConvertedCount++
					}
				}
			case models.CourseCategoryRenewal:
				perf.Formals.RenewalCount++
				perf.Formals.RenewalRevenue = perf.Formals.RenewalRevenue.Add(p.ActualRevenue)
				perf.Formals.RenewalProfit = perf.Formals.RenewalProfit.Add(p.Profit)
			default:
				perf.Formals.NewCount++
				perf.Formals.NewRevenue = perf.Formals.NewRevenue.Add(p.ActualRevenue)
				perf.Formals.NewProfit = perf.Formals.NewProfit.Add(p.Profit)
			}
		}

		perf.Conversion.TotalTrials = perf.Trials.Count
		perf.Conversion.Rate = utils.SafeDiv(
			decimal.NewFromInt(int64(perf.Conversion.ConvertedCount)).Mul(utils.Hundred),
			decimal.NewFromInt(int64(perf.Conversion.TotalTrials)),
		).Round(2)
		perf.Trials.ConversionRate = perf.Conversion.Rate

		cfg, err := s.employeeRepo.WithTx(tx).GetCommissionConfig(ctx, employeeID)
		if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrDatabaseError.WithError(err)
		}
		perf.Commission = CommissionOf(employeeID, cfg, l.profits)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveReportGlobal("performance", time.Since(started))
	return perf, nil
}

func sameEmployee(assigned *int64, employeeID int64) bool {
	return assigned != nil && *assigned == employeeID
}
