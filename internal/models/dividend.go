package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendStatus 分红状态
const (
	DividendStatusPending   = "pending"   // 待发放
	DividendStatusPaid      = "paid"      // 已发放
	DividendStatusCancelled = "cancelled" // 已取消
)

// DividendRecord 分红记录
type DividendRecord struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ShareholderName     string              `gorm:"type:varchar(50);not null;uniqueIndex:uk_dividend_period,priority:1;column:shareholder_name" json:"shareholder_name"`
	PeriodYear          int                 `gorm:"not null;uniqueIndex:uk_dividend_period,priority:2;column:period_year" json:"period_year"`
	PeriodMonth         int                 `gorm:"not null;uniqueIndex:uk_dividend_period,priority:3;column:period_month" json:"period_month"`
	DividendDate        time.Time           `gorm:"not null;uniqueIndex:uk_dividend_period,priority:4;column:dividend_date" json:"dividend_date"`
	CalculatedProfit    decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0;column:calculated_profit" json:"calculated_profit"`
	ActualDividend      decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0;column:actual_dividend" json:"actual_dividend"`
	Status              string              `gorm:"type:varchar(20);not null;index;column:status" json:"status"`
	SnapshotTotalProfit decimal.NullDecimal `gorm:"type:decimal(20,4);column:snapshot_total_profit" json:"snapshot_total_profit"`
	SnapshotProfitRatio decimal.NullDecimal `gorm:"type:decimal(10,6);column:snapshot_profit_ratio" json:"snapshot_profit_ratio"`
	PaymentMethod       *string             `gorm:"type:varchar(20);column:payment_method" json:"payment_method,omitempty"`
	Remarks             *string             `gorm:"type:varchar(255);column:remarks" json:"remarks,omitempty"`
	CreatedAt           time.Time           `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (DividendRecord) TableName() string {
	return "dividend_records"
}

// DividendSummary 股东分红汇总，由分红记录重新推导
type DividendSummary struct {
	ID               int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ShareholderName  string          `gorm:"type:varchar(50);uniqueIndex;not null;column:shareholder_name" json:"shareholder_name"`
	TotalCalculated  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:total_calculated" json:"total_calculated"`
	TotalPaid        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:total_paid" json:"total_paid"`
	TotalPending     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:total_pending" json:"total_pending"`
	RecordCount      int             `gorm:"not null;default:0;column:record_count" json:"record_count"`
	LastDividendDate *time.Time      `gorm:"column:last_dividend_date" json:"last_dividend_date,omitempty"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (DividendSummary) TableName() string {
	return "dividend_summaries"
}
