package finance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
	"github.com/dumeirei/edu-backoffice/internal/testutil"
)

type reportFixture struct {
	db        *gorm.DB
	courses   *repository.CourseRepository
	customers *repository.CustomerRepository
	refunds   *repository.RefundRepository
	employees *repository.EmployeeRepository
	shills    *repository.ShillOrderRepository
	costs     *repository.OperationalCostRepository
	registry  *setting.Registry
	svc       *ReportService
	phone     int
}

func newReportFixture(t *testing.T) *reportFixture {
	db := testutil.NewDB(t)
	f := &reportFixture{
		db:        db,
		courses:   repository.NewCourseRepository(db),
		customers: repository.NewCustomerRepository(db),
		refunds:   repository.NewRefundRepository(db),
		employees: repository.NewEmployeeRepository(db),
		shills:    repository.NewShillOrderRepository(db),
		costs:     repository.NewOperationalCostRepository(db),
	}
	f.registry = setting.NewRegistry(db, repository.NewSystemConfigRepository(db), map[string]string{
		models.ConfigKeyTrialCost:     "30",
		models.ConfigKeyCourseCost:    "50",
		models.ConfigKeyTaobaoFeeRate: "1",
	})
	f.svc = NewReportService(db, f.courses, f.refunds, f.employees, f.shills, f.costs, f.registry)
	return f
}

func (f *reportFixture) customer(t *testing.T) *models.Customer {
	f.phone++
	c := &models.Customer{Name: "客户", Phone: fmt.Sprintf("+86138%08d", f.phone)}
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func (f *reportFixture) employee(t *testing.T, name string, cfg *models.CommissionConfig) *models.Employee {
	e := &models.Employee{Name: name, IsActive: true}
	require.NoError(t, f.employees.Create(context.Background(), e))
	if cfg != nil {
		cfg.EmployeeID = e.ID
		require.NoError(t, f.employees.UpsertCommissionConfig(context.Background(), cfg))
	}
	return e
}

func (f *reportFixture) trial(t *testing.T, employeeID *int64, status string, at time.Time) *models.Course {
	c := f.customer(t)
	course := &models.Course{
		Kind:               models.CourseKindTrial,
		CustomerID:         c.ID,
		TrialCustomerID:    &c.ID,
		AssignedEmployeeID: employeeID,
		TrialStatus:        status,
		TrialPrice:         dec("99"),
		Source:             models.ChannelWechat,
		CreatedAt:          at,
	}
	require.NoError(t, f.courses.Create(context.Background(), course))
	return course
}

func (f *reportFixture) formal(t *testing.T, employeeID *int64, at time.Time) *models.Course {
	c := f.customer(t)
	course := taobaoFormal()
	course.ID = 0
	course.CustomerID = c.ID
	course.AssignedEmployeeID = employeeID
	course.CreatedAt = at
	require.NoError(t, f.courses.Create(context.Background(), course))
	return course
}

func january(t *testing.T) period.Window {
	w, err := period.MonthOf(2024, 1)
	require.NoError(t, err)
	return w
}

func TestReportService_Comprehensive(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	emp := f.employee(t, "张三", &models.CommissionConfig{
		Basis:         models.CommissionBasisProfit,
		NewCourseRate: dec("10"),
		RenewalRate:   dec("20"),
		BaseSalary:    dec("3000"),
	})
	f.trial(t, &emp.ID, models.TrialStatusRegistered, testutil.Date(2024, time.January, 5))
	f.trial(t, nil, models.TrialStatusMisOperation, testutil.Date(2024, time.January, 6))
	formal := f.formal(t, &emp.ID, testutil.Date(2024, time.January, 10))
	// 窗口外的课程不计入
	f.formal(t, &emp.ID, testutil.Date(2024, time.February, 1))

	require.NoError(t, f.refunds.Create(ctx, &models.CourseRefund{
		CourseID:       formal.ID,
		RefundSessions: 3,
		RefundAmount:   dec("300"),
		RefundChannel:  models.ChannelTaobao,
		RefundDate:     testutil.Date(2024, time.January, 20),
		Status:         models.RefundStatusCompleted,
	}))
	require.NoError(t, f.shills.Create(ctx, &models.ShillOrder{
		Name:        "刷手",
		Amount:      dec("100"),
		Commission:  dec("20"),
		PlatformFee: dec("5"),
		OrderTime:   testutil.Date(2024, time.January, 15),
	}))
	require.NoError(t, f.costs.Create(ctx, &models.OperationalCost{
		CostType:           "rent",
		CostName:           "房租",
		Amount:             dec("1000"),
		CostDate:           testutil.Date(2024, time.January, 1),
		BillingPeriod:      models.BillingPeriodMonth,
		AllocationMethod:   models.AllocationProportional,
		AllocatedToCourses: true,
		Status:             models.OperationalCostActive,
	}))

	report, err := f.svc.Comprehensive(ctx, january(t))
	require.NoError(t, err)

	assert.Equal(t, CourseCounts{Trial: 1, NewCourse: 1, Total: 2}, report.Counts)
	testutil.AssertDecimal(t, "99", report.Revenue.TrialRevenue)
	testutil.AssertDecimal(t, "700", report.Revenue.NewCourseRevenue)
	testutil.AssertDecimal(t, "799", report.Revenue.TotalRevenue)
	testutil.AssertDecimal(t, "300", report.Revenue.RefundAmount)

	testutil.AssertDecimal(t, "170", report.Cost.CourseCost)
	testutil.AssertDecimal(t, "6", report.Cost.TotalFee)
	testutil.AssertDecimal(t, "20", report.Cost.TaobaoCommission)
	testutil.AssertDecimal(t, "5", report.Cost.TaobaoPlatformFee)
	testutil.AssertDecimal(t, "3000", report.Cost.EmployeeSalary)
	testutil.AssertDecimal(t, "55.4", report.Cost.EmployeeCommission)
	testutil.AssertDecimal(t, "1000", report.Cost.OperationalCost)
	testutil.AssertDecimal(t, "4256.4", report.Cost.TotalCost)

	testutil.AssertDecimal(t, "69", report.Profit.TrialProfit)
	testutil.AssertDecimal(t, "554", report.Profit.NewCourseProfit)
	testutil.AssertDecimal(t, "623", report.Profit.GrossProfit)
	testutil.AssertDecimal(t, "-3457.4", report.Profit.NetProfit)

	testutil.AssertDecimal(t, "1000", report.Allocation.TotalOperationalCost)
	assert.Equal(t, int64(2), report.Allocation.CourseCount)
	testutil.AssertDecimal(t, "500", report.Allocation.CostPerCourse)

	split := report.Shareholders
	assert.Equal(t, setting.DefaultShareholderA, split.A.Name)
	testutil.AssertDecimal(t, "3011.4", split.SharedCostTotal)
	testutil.AssertDecimal(t, "-1228.7", split.A.NetAmount)
	testutil.AssertDecimal(t, report.Profit.NetProfit.Add(report.Cost.OperationalCost).String(),
		split.A.NetAmount.Add(split.B.NetAmount))

	require.Len(t, report.Commissions, 1)
	assert.Equal(t, emp.ID, report.Commissions[0].EmployeeID)
	testutil.AssertDecimal(t, "55.4", report.Commissions[0].NewCourse)
}

func TestReportService_EmptyWindow(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.formal(t, nil, testutil.Date(2024, time.January, 10))
	f.employee(t, "在职员工", &models.CommissionConfig{Basis: models.CommissionBasisProfit, BaseSalary: dec("3000")})

	start := testutil.Date(2024, time.February, 1)
	end := testutil.Date(2024, time.January, 1)
	w, err := period.Resolve(period.Custom, time.Now(), &start, &end)
	require.NoError(t, err)
	require.True(t, w.IsEmpty())

	report, err := f.svc.Comprehensive(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Counts.Total)
	testutil.AssertDecimal(t, "0", report.Revenue.TotalRevenue)
	testutil.AssertDecimal(t, "0", report.Cost.EmployeeSalary)
	testutil.AssertDecimal(t, "0", report.Cost.TotalCost)
	testutil.AssertDecimal(t, "0", report.Profit.NetProfit)
	testutil.AssertDecimal(t, "0", report.Profit.ProfitMargin)
	testutil.AssertDecimal(t, "0", report.Shareholders.A.NetAmount)
	testutil.AssertDecimal(t, "0", report.Shareholders.B.NetAmount)
	assert.NotNil(t, report.Commissions)

	profit, err := f.svc.Profit(ctx, w)
	require.NoError(t, err)
	assert.Empty(t, profit.Courses)
	assert.Equal(t, 0, profit.Totals.CourseCount)
}

func TestReportService_Profit(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.trial(t, nil, models.TrialStatusNotRegistered, testutil.Date(2024, time.January, 3))
	f.trial(t, nil, models.TrialStatusMisOperation, testutil.Date(2024, time.January, 4))
	f.formal(t, nil, testutil.Date(2024, time.January, 10))

	report, err := f.svc.Profit(ctx, january(t))
	require.NoError(t, err)
	assert.Len(t, report.Courses, 2)
	assert.Equal(t, 2, report.Totals.CourseCount)
	testutil.AssertDecimal(t, "764", report.Totals.Profit)
	testutil.AssertDecimal(t, "-30", report.ByCategory[models.CourseCategoryTrial].Profit)
	testutil.AssertDecimal(t, "794", report.ByCategory[models.CourseCategoryNew].Profit)
	assert.Equal(t, 0, report.ByCategory[models.CourseCategoryRenewal].CourseCount)
}

func TestReportService_CourseProfit(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	formal := f.formal(t, nil, testutil.Date(2024, time.January, 10))

	require.NoError(t, f.refunds.Create(ctx, &models.CourseRefund{
		CourseID:       formal.ID,
		RefundSessions: 3,
		RefundAmount:   dec("300"),
		RefundChannel:  models.ChannelTaobao,
		RefundDate:     testutil.Date(2024, time.January, 20),
		Status:         models.RefundStatusCompleted,
	}))
	require.NoError(t, f.refunds.Create(ctx, &models.CourseRefund{
		CourseID:       formal.ID,
		RefundSessions: 5,
		RefundAmount:   dec("500"),
		RefundChannel:  models.ChannelTaobao,
		RefundDate:     testutil.Date(2024, time.January, 21),
		Status:         models.RefundStatusCancelled,
	}))

	p, err := f.svc.CourseProfit(ctx, formal.ID, true)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "554", p.Profit, "已取消的退费不计入")

	p, err = f.svc.CourseProfit(ctx, formal.ID, false)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "794", p.Profit)

	_, err = f.svc.CourseProfit(ctx, 999, true)
	assert.True(t, errors.Is(err, errors.ErrCourseNotFound))
}

func TestReportService_LiveRateChangeDoesNotMoveFormalProfit(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	formal := f.formal(t, nil, testutil.Date(2024, time.January, 10))

	before, err := f.svc.CourseProfit(ctx, formal.ID, true)
	require.NoError(t, err)

	require.NoError(t, f.registry.Set(ctx, models.ConfigKeyCourseCost, "80"))
	require.NoError(t, f.registry.Set(ctx, models.ConfigKeyTaobaoFeeRate, "5"))

	after, err := f.svc.CourseProfit(ctx, formal.ID, true)
	require.NoError(t, err)
	testutil.AssertDecimal(t, before.Profit.String(), after.Profit)
}

func TestReportService_Performance(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	emp := f.employee(t, "张三", &models.CommissionConfig{
		Basis:         models.CommissionBasisProfit,
		NewCourseRate: dec("10"),
	})
	other := f.employee(t, "李四", nil)
	jan := testutil.Date(2024, time.January, 8)

	// 转化给本人的正课计入转化数
	own := f.formal(t, &emp.ID, jan)
	t1 := f.trial(t, &emp.ID, models.TrialStatusConverted, jan)
	require.NoError(t, f.courses.UpdateFields(ctx, t1.ID, map[string]interface{}{"converted_to_course_id": own.ID}))

	// 转化给他人的正课不计入
	foreign := f.formal(t, &other.ID, jan)
	t2 := f.trial(t, &emp.ID, models.TrialStatusConverted, jan)
	require.NoError(t, f.courses.UpdateFields(ctx, t2.ID, map[string]interface{}{"converted_to_course_id": foreign.ID}))

	f.trial(t, &emp.ID, models.TrialStatusCompleted, jan)
	f.trial(t, &emp.ID, models.TrialStatusRegistered, jan)
	f.trial(t, &emp.ID, models.TrialStatusMisOperation, jan)

	var courseQueries int
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:count_course_queries", func(tx *gorm.DB) {
		if tx.Statement.Table == "courses" {
			courseQueries++
		}
	}))
	t.Cleanup(func() { _ = f.db.Callback().Query().Remove("test:count_course_queries") })

	perf, err := f.svc.Performance(ctx, emp.ID, january(t))
	require.NoError(t, err)
	// 窗口课程一次，转化目标一次
	assert.Equal(t, 2, courseQueries)

	assert.Equal(t, "张三", perf.EmployeeName)
	assert.Equal(t, 4, perf.Trials.Count)
	assert.Equal(t, 2, perf.Trials.ByStatus[models.TrialStatusConverted])
	assert.Equal(t, 4, perf.Conversion.TotalTrials)
	assert.Equal(t, 3, perf.Conversion.CompletedTrials)
	assert.Equal(t, 1, perf.Conversion.ConvertedCount)
	testutil.AssertDecimal(t, "25", perf.Conversion.Rate)
	assert.Equal(t, 1, perf.Formals.NewCount)
	testutil.AssertDecimal(t, "794", perf.Formals.NewProfit)
	testutil.AssertDecimal(t, "79.4", perf.Commission.NewCourse)

	_, err = f.svc.Performance(ctx, 999, january(t))
	assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))
}
