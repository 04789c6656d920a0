package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShillOrder 刷单记录
type ShillOrder struct {
	ID          int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name        string          `gorm:"type:varchar(50);not null;column:name" json:"name"`
	Level       string          `gorm:"type:varchar(20);column:level" json:"level"`
	ProductName *string         `gorm:"type:varchar(100);column:product_name" json:"product_name,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:amount" json:"amount"`
	Commission  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:commission" json:"commission"`
	PlatformFee decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:platform_fee" json:"platform_fee"`
	Evaluated   bool            `gorm:"not null;default:false;column:evaluated" json:"evaluated"`
	OrderTime   time.Time       `gorm:"not null;index;column:order_time" json:"order_time"`
	Settled     bool            `gorm:"not null;default:false;column:settled" json:"settled"`
	SettledAt   *time.Time      `gorm:"column:settled_at" json:"settled_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (ShillOrder) TableName() string {
	return "shill_orders"
}
