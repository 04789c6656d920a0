package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingPeriod 计费周期
const (
	BillingPeriodMonth   = "month"
	BillingPeriodQuarter = "quarter"
	BillingPeriodYear    = "year"
	BillingPeriodOneTime = "one-time"
)

// AllocationMethod 分摊方式
const (
	AllocationProportional = "proportional" // 按比例
	AllocationEqual        = "equal"        // 平均
)

// OperationalCostStatus 运营成本状态
const (
	OperationalCostActive   = "active"   // 生效
	OperationalCostArchived = "archived" // 归档
)

// OperationalCost 运营成本
type OperationalCost struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CostType           string          `gorm:"type:varchar(50);not null;index;column:cost_type" json:"cost_type"`
	CostName           string          `gorm:"type:varchar(100);not null;column:cost_name" json:"cost_name"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null;column:amount" json:"amount"`
	CostDate           time.Time       `gorm:"not null;index;column:cost_date" json:"cost_date"`
	BillingPeriod      string          `gorm:"type:varchar(20);not null;column:billing_period" json:"billing_period"`
	AllocationMethod   string          `gorm:"type:varchar(20);not null;column:allocation_method" json:"allocation_method"`
	AllocatedToCourses bool            `gorm:"not null;column:allocated_to_courses" json:"allocated_to_courses"`
	Status             string          `gorm:"type:varchar(20);not null;index;column:status" json:"status"`
	Description        *string         `gorm:"type:varchar(255);column:description" json:"description,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (OperationalCost) TableName() string {
	return "operational_costs"
}
