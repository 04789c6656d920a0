package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/testutil"
)

func profitFor(employeeID int64, category, profit, revenue string) CourseProfit {
	id := employeeID
	return CourseProfit{
		EmployeeID:    &id,
		Category:      category,
		Profit:        dec(profit),
		ActualRevenue: dec(revenue),
	}
}

func TestCommissionOf_ProfitBasis(t *testing.T) {
	cfg := &models.CommissionConfig{
		EmployeeID:    1,
		Basis:         models.CommissionBasisProfit,
		TrialRate:     dec("5"),
		NewCourseRate: dec("10"),
		RenewalRate:   dec("20"),
		BaseSalary:    dec("3000"),
	}
	profits := []CourseProfit{
		profitFor(1, models.CourseCategoryNew, "800", "1000"),
		profitFor(1, models.CourseCategoryRenewal, "500", "600"),
		profitFor(2, models.CourseCategoryNew, "10000", "10000"),
	}

	c := CommissionOf(1, cfg, profits)
	testutil.AssertDecimal(t, "80", c.NewCourse)
	testutil.AssertDecimal(t, "100", c.Renewal)
	testutil.AssertDecimal(t, "0", c.Trial)
	testutil.AssertDecimal(t, "180", c.Total)
	testutil.AssertDecimal(t, "3000", c.BaseSalary)
	assert.Equal(t, 2, c.CourseCount)
	assert.True(t, c.HasConfig)
}

func TestCommissionOf_SalesBasisAndNegativeProfit(t *testing.T) {
	cfg := &models.CommissionConfig{
		Basis:         models.CommissionBasisSales,
		TrialRate:     dec("10"),
		NewCourseRate: dec("10"),
	}
	profits := []CourseProfit{
		profitFor(1, models.CourseCategoryNew, "-100", "1000"),
		profitFor(1, models.CourseCategoryTrial, "-30", "0"),
	}
	c := CommissionOf(1, cfg, profits)
	testutil.AssertDecimal(t, "100", c.NewCourse)
	testutil.AssertDecimal(t, "0", c.Trial)

	cfg.Basis = models.CommissionBasisProfit
	c = CommissionOf(1, cfg, profits)
	testutil.AssertDecimal(t, "-10", c.NewCourse)
	testutil.AssertDecimal(t, "-3", c.Trial)
	testutil.AssertDecimal(t, "-13", c.Total)
}

func TestCommissionOf_NoConfig(t *testing.T) {
	c := CommissionOf(1, nil, []CourseProfit{profitFor(1, models.CourseCategoryNew, "800", "1000")})
	assert.False(t, c.HasConfig)
	testutil.AssertDecimal(t, "0", c.Total)
	assert.Equal(t, 0, c.CourseCount)
}

func TestCommissionOf_SkipsExcluded(t *testing.T) {
	cfg := &models.CommissionConfig{NewCourseRate: dec("10"), TrialRate: dec("10")}
	p := profitFor(1, models.CourseCategoryTrial, "100", "100")
	p.Excluded = true
	c := CommissionOf(1, cfg, []CourseProfit{p})
	testutil.AssertDecimal(t, "0", c.Total)
}
