package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee 员工
type Employee struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name          string          `gorm:"type:varchar(50);uniqueIndex;not null;column:name" json:"name"`
	Phone         *string         `gorm:"type:varchar(20);column:phone" json:"phone,omitempty"`
	Email         *string         `gorm:"type:varchar(100);column:email" json:"email,omitempty"`
	MonthlySalary decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:monthly_salary" json:"monthly_salary"`
	IsActive      bool            `gorm:"not null;column:is_active" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Employee) TableName() string {
	return "employees"
}

// CommissionBasis 提成基数
const (
	CommissionBasisProfit = "profit" // 按利润
	CommissionBasisSales  = "sales"  // 按销售额
)

// CommissionConfig 员工提成配置，每个员工一条
type CommissionConfig struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	EmployeeID    int64           `gorm:"uniqueIndex;not null;column:employee_id" json:"employee_id"`
	Basis         string          `gorm:"type:varchar(10);not null;default:'profit';column:basis" json:"basis"`
	TrialRate     decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0;column:trial_rate" json:"trial_rate"`
	NewCourseRate decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0;column:new_course_rate" json:"new_course_rate"`
	RenewalRate   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0;column:renewal_rate" json:"renewal_rate"`
	BaseSalary    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:base_salary" json:"base_salary"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (CommissionConfig) TableName() string {
	return "commission_configs"
}

// RateFor 返回课程分类对应的提成比例（百分数）
func (c *CommissionConfig) RateFor(category string) decimal.Decimal {
	switch category {
	case CourseCategoryTrial:
		return c.TrialRate
	case CourseCategoryRenewal:
		return c.RenewalRate
	default:
		return c.NewCourseRate
	}
}
