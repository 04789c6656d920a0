package finance

import (
	"github.com/shopspring/decimal"

	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/models"
)

// Commission 员工提成
type Commission struct {
	EmployeeID  int64           `json:"employee_id"`
	Basis       string          `json:"basis,omitempty"`
	Trial       decimal.Decimal `json:"trial"`
	NewCourse   decimal.Decimal `json:"new_course"`
	Renewal     decimal.Decimal `json:"renewal"`
	Total       decimal.Decimal `json:"total"`
	BaseSalary  decimal.Decimal `json:"base_salary"`
	CourseCount int             `json:"course_count"`
	HasConfig   bool            `json:"has_config"`
}

// CommissionOf 按员工提成配置计算 profits 中属于该员工的提成
//
// 没有提成配置时全部为零；利润为负时提成同样为负。
func CommissionOf(employeeID int64, cfg *models.CommissionConfig, profits []CourseProfit) Commission {
	c := Commission{EmployeeID: employeeID}
	if cfg == nil {
		return c
	}
	c.HasConfig = true
	c.Basis = cfg.Basis
	c.BaseSalary = cfg.BaseSalary

	for _, p := range profits {
		if p.Excluded || p.EmployeeID == nil || *p.EmployeeID != employeeID {
			continue
		}
		basis := p.Profit
		if cfg.Basis == models.CommissionBasisSales {
			basis = p.ActualRevenue
		}
		amount := basis.Mul(utils.Percent(cfg.RateFor(p.Category)))

		switch p.Category {
		case models.CourseCategoryTrial:
			c.Trial = c.Trial.Add(amount)
		case models.CourseCategoryRenewal:
			c.Renewal = c.Renewal.Add(amount)
		default:
			c.NewCourse = c.NewCourse.Add(amount)
		}
		c.CourseCount++
	}
	c.Total = c.Trial.Add(c.NewCourse).Add(c.Renewal)
	return c
}
