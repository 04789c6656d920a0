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
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// ReportService 财务报表服务
type ReportService struct {
	db           *gorm.DB
	courseRepo   *repository.CourseRepository
	refundRepo   *repository.RefundRepository
	employeeRepo *repository.EmployeeRepository
	shillRepo    *repository.ShillOrderRepository
	costRepo     *repository.OperationalCostRepository
	registry     *setting.Registry
}

// NewReportService 创建财务报表服务
func NewReportService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	refundRepo *repository.RefundRepository,
	employeeRepo *repository.EmployeeRepository,
	shillRepo *repository.ShillOrderRepository,
	costRepo *repository.OperationalCostRepository,
	registry *setting.Registry,
) *ReportService {
	return &ReportService{
		db:           db,
		courseRepo:   courseRepo,
		refundRepo:   refundRepo,
		employeeRepo: employeeRepo,
		shillRepo:    shillRepo,
		costRepo:     costRepo,
		registry:     registry,
	}
}

// RevenueBreakdown 收入构成
type RevenueBreakdown struct {
	TrialRevenue     decimal.Decimal `json:"trial_revenue"`
	NewCourseRevenue decimal.Decimal `json:"new_course_revenue"`
	RenewalRevenue   decimal.Decimal `json:"renewal_revenue"`
	CourseRevenue    decimal.Decimal `json:"course_revenue"`
	// RefundAmount 窗口内已完成退费的客户实际到手金额，仅展示
	RefundAmount decimal.Decimal `json:"refund_amount"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// CostBreakdown 成本构成，各项互不重叠
type CostBreakdown struct {
	CourseCost         decimal.Decimal `json:"course_cost"`
	TotalFee           decimal.Decimal `json:"total_fee"`
	TaobaoCommission   decimal.Decimal `json:"taobao_commission"`
	TaobaoPlatformFee  decimal.Decimal `json:"taobao_platform_fee"`
	EmployeeSalary     decimal.Decimal `json:"employee_salary"`
	EmployeeCommission decimal.Decimal `json:"employee_commission"`
	OperationalCost    decimal.Decimal `json:"operational_cost"`
	TotalCost          decimal.Decimal `json:"total_cost"`
}

// ProfitSummary 利润汇总
type ProfitSummary struct {
	TrialProfit     decimal.Decimal `json:"trial_profit"`
	NewCourseProfit decimal.Decimal `json:"new_course_profit"`
	RenewalProfit   decimal.Decimal `json:"renewal_profit"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	ProfitMargin    decimal.Decimal `json:"profit_margin"`
}

// CourseCounts 课程数量
type CourseCounts struct {
	Trial     int `json:"trial"`
	NewCourse int `json:"new_course"`
	Renewal   int `json:"renewal"`
	Total     int `json:"total"`
}

// ComprehensiveReport 综合报表
type ComprehensiveReport struct {
	Window       period.Window    `json:"window"`
	Revenue      RevenueBreakdown `json:"revenue"`
	Cost         CostBreakdown    `json:"cost"`
	Profit       ProfitSummary    `json:"profit"`
	Counts       CourseCounts     `json:"counts"`
	Allocation   Allocation       `json:"allocation"`
	Shareholders ShareholderSplit `json:"shareholders"`
	Commissions  []Commission     `json:"commissions"`
}

// ProfitReport 利润报表
type ProfitReport struct {
	Window     period.Window            `json:"window"`
	Courses    []CourseProfit           `json:"courses"`
	Totals     ProfitTotals             `json:"totals"`
	ByCategory map[string]*ProfitTotals `json:"by_category"`
}

// ledger 一个窗口内参与统计的课程利润
type ledger struct {
	rates   setting.Rates
	courses map[int64]*models.Course
	profits []CourseProfit
}

// loadLedger 在 tx 中读取窗口内课程并计算利润，误操作试听课不读取
//
// 配置需在开启快照前读出，注册表不经过 tx。
func (s *ReportService) loadLedger(ctx context.Context, tx *gorm.DB, w period.Window, employeeID *int64, rates setting.Rates) (*ledger, error) {
	l := &ledger{rates: rates, courses: map[int64]*models.Course{}}
	if w.IsEmpty() {
		return l, nil
	}

	courses, err := s.courseRepo.WithTx(tx).FindAll(ctx, &repository.CourseFilter{
		Start:               &w.Start,
		End:                 &w.End,
		EmployeeID:          employeeID,
		ExcludeMisOperation: true,
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	formalIDs := make([]int64, 0, len(courses))
	for _, c := range courses {
		if c.IsFormal() {
			formalIDs = append(formalIDs, c.ID)
		}
	}
	totals, err := s.refundRepo.WithTx(tx).CompletedTotalsByCourses(ctx, formalIDs)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	l.profits = make([]CourseProfit, 0, len(courses))
	for _, c := range courses {
		l.courses[c.ID] = c
		l.profits = append(l.profits, ProfitOf(c, totals[c.ID], rates, true))
	}
	return l, nil
}

// CourseProfit 计算单个课程利润
func (s *ReportService) CourseProfit(ctx context.Context, courseID int64, includeRefunds bool) (*CourseProfit, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCourseNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	rates, err := s.registry.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	var totals repository.RefundTotals
	if course.IsFormal() {
		if totals, err = s.refundRepo.CompletedTotals(ctx, courseID); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}
	p := ProfitOf(course, totals, rates, includeRefunds)
	return &p, nil
}

// Profit 生成利润报表
func (s *ReportService) Profit(ctx context.Context, w period.Window) (*ProfitReport, error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "finance.ProfitReport")
	var err error
	defer func() { tracing.End(span, err) }()

	report := &ProfitReport{
		Window:  w,
		Courses: []CourseProfit{},
		ByCategory: map[string]*ProfitTotals{
			models.CourseCategoryTrial:   {},
			models.CourseCategoryNew:     {},
			models.CourseCategoryRenewal: {},
		},
	}
	rates, err := s.registry.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	err = database.ReadSnapshot(ctx, s.db, func(tx *gorm.DB) error {
		l, err := s.loadLedger(ctx, tx, w, nil, rates)
		if err != nil {
			return err
		}
		for _, p := range l.profits {
			report.Courses = append(report.Courses, p)
			report.Totals.Add(p)
			report.ByCategory[p.Category].Add(p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveReportGlobal("profit", time.Since(started))
	return report, nil
}

// Comprehensive 生成综合报表
func (s *ReportService) Comprehensive(ctx context.Context, w period.Window) (*ComprehensiveReport, error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "finance.ComprehensiveReport")
	var err error
	defer func() { tracing.End(span, err) }()

	params, err := s.loadParams(ctx)
	if err != nil {
		return nil, err
	}
	var report *ComprehensiveReport
	err = database.ReadSnapshot(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		report, err = s.buildComprehensive(ctx, tx, w, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveReportGlobal("comprehensive", time.Since(started))
	return report, nil
}

// reportParams 综合报表用到的配置
type reportParams struct {
	rates setting.Rates
	a     ShareholderRatio
	b     ShareholderRatio
}

func (s *ReportService) loadParams(ctx context.Context) (reportParams, error) {
	rates, err := s.registry.CurrentRates(ctx)
	if err != nil {
		return reportParams{}, err
	}
	nameA, nameB, err := s.registry.Shareholders(ctx)
	if err != nil {
		return reportParams{}, err
	}
	ratioA, ratioB, err := s.registry.ShareholderRatios(ctx)
	if err != nil {
		return reportParams{}, err
	}
	return reportParams{
		rates: rates,
		a:     ShareholderRatio{Name: nameA, Ratio: ratioA},
		b:     ShareholderRatio{Name: nameB, Ratio: ratioB},
	}, nil
}

func (s *ReportService) buildComprehensive(ctx context.Context, tx *gorm.DB, w period.Window, params reportParams) (*ComprehensiveReport, error) {
	l, err := s.loadLedger(ctx, tx, w, nil, params.rates)
	if err != nil {
		return nil, err
	}

	report := &ComprehensiveReport{Window: w, Commissions: []Commission{}}
	rev, cost, profit, counts := &report.Revenue, &report.Cost, &report.Profit, &report.Counts

	var employeeIDs []int64
	for _, p := range l.profits {
		switch p.Category {
		case models.CourseCategoryTrial:
			rev.TrialRevenue = rev.TrialRevenue.Add(p.ActualRevenue)
			profit.TrialProfit = profit.TrialProfit.Add(p.Profit)
			counts.Trial++
		case models.CourseCategoryRenewal:
			rev.RenewalRevenue = rev.RenewalRevenue.Add(p.ActualRevenue)
			profit.RenewalProfit = profit.RenewalProfit.Add(p.Profit)
			counts.Renewal++
		default:
			rev.NewCourseRevenue = rev.NewCourseRevenue.Add(p.ActualRevenue)
			profit.NewCourseProfit = profit.NewCourseProfit.Add(p.Profit)
			counts.NewCourse++
		}
		cost.CourseCost = cost.CourseCost.Add(p.Cost)
		cost.TotalFee = cost.TotalFee.Add(p.Fee)
		profit.GrossProfit = profit.GrossProfit.Add(p.Profit)
		if p.EmployeeID != nil {
			employeeIDs = append(employeeIDs, *p.EmployeeID)
		}
	}
	counts.Total = counts.Trial + counts.NewCourse + counts.Renewal
	rev.CourseRevenue = rev.TrialRevenue.Add(rev.NewCourseRevenue).Add(rev.RenewalRevenue)
	rev.TotalRevenue = rev.CourseRevenue

	if !w.IsEmpty() {
		if err := s.fillWindowCosts(ctx, tx, w, report); err != nil {
			return nil, err
		}
		// 底薪按在职员工计一次，与窗口内是否有课无关；空窗口不计
		active, err := s.employeeRepo.WithTx(tx).ActiveCommissionConfigs(ctx)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		for _, cfg := range active {
			cost.EmployeeSalary = cost.EmployeeSalary.Add(cfg.BaseSalary)
		}
	} else {
		report.Allocation = Allocate(nil, 0)
	}

	employeeIDs = utils.Unique(employeeIDs)
	configs, err := s.employeeRepo.WithTx(tx).CommissionConfigsByEmployees(ctx, employeeIDs)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	for _, id := range employeeIDs {
		c := CommissionOf(id, configs[id], l.profits)
		report.Commissions = append(report.Commissions, c)
		cost.EmployeeCommission = cost.EmployeeCommission.Add(c.Total)
	}

	cost.TotalCost = utils.SumDecimal(
		cost.CourseCost,
		cost.TotalFee,
		cost.TaobaoCommission,
		cost.TaobaoPlatformFee,
		cost.EmployeeSalary,
		cost.EmployeeCommission,
		cost.OperationalCost,
	)
	profit.NetProfit = rev.TotalRevenue.Sub(cost.TotalCost)
	profit.ProfitMargin = utils.SafeDiv(profit.NetProfit, rev.TotalRevenue)

	report.Shareholders = SplitShareholders(params.a, params.b,
		SplitInput{
			NewCourseProfit: profit.NewCourseProfit,
			RenewalProfit:   profit.RenewalProfit,
			TrialProfit:     profit.TrialProfit,
			TaobaoTotal:     cost.TaobaoCommission.Add(cost.TaobaoPlatformFee),
			EmployeeTotal:   cost.EmployeeSalary.Add(cost.EmployeeCommission),
			OperationalCost: cost.OperationalCost,
		},
	)
	return report, nil
}

// fillWindowCosts 读取窗口内的退费、刷单和运营成本
func (s *ReportService) fillWindowCosts(ctx context.Context, tx *gorm.DB, w period.Window, report *ComprehensiveReport) error {
	refunds, err := s.refundRepo.WithTx(tx).ListCompletedInWindow(ctx, w.Start, w.End)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	for _, rf := range refunds {
		report.Revenue.RefundAmount = report.Revenue.RefundAmount.Add(rf.NetPayout())
	}

	orders, err := s.shillRepo.WithTx(tx).List(ctx, &repository.ShillOrderFilter{Start: &w.Start, End: &w.End})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	for _, o := range orders {
		report.Cost.TaobaoCommission = report.Cost.TaobaoCommission.Add(o.Commission)
		report.Cost.TaobaoPlatformFee = report.Cost.TaobaoPlatformFee.Add(o.PlatformFee)
	}

	alloc, err := s.allocate(ctx, tx, w)
	if err != nil {
		return err
	}
	report.Allocation = alloc
	report.Cost.OperationalCost = alloc.TotalOperationalCost
	return nil
}

// allocate 窗口内运营成本分摊
func (s *ReportService) allocate(ctx context.Context, tx *gorm.DB, w period.Window) (Allocation, error) {
	if w.IsEmpty() {
		return Allocate(nil, 0), nil
	}
	costs, err := s.costRepo.WithTx(tx).List(ctx, &repository.OperationalCostFilter{
		Start:         &w.Start,
		End:           &w.End,
		Status:        models.OperationalCostActive,
		AllocatedOnly: true,
	})
	if err != nil {
		return Allocation{}, errors.ErrDatabaseError.WithError(err)
	}
	count, err := s.courseRepo.WithTx(tx).CountInWindow(ctx, w.Start, w.End)
	if err != nil {
		return Allocation{}, errors.ErrDatabaseError.WithError(err)
	}
	return Allocate(costs, count), nil
}

// Allocation 计算窗口内运营成本分摊
func (s *ReportService) Allocation(ctx context.Context, w period.Window) (*Allocation, error) {
	var alloc Allocation
	err := database.ReadSnapshot(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		alloc, err = s.allocate(ctx, tx, w)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}
