package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus 退费状态
const (
	RefundStatusCompleted = "completed" // 已完成
	RefundStatusCancelled = "cancelled" // 已取消
)

// CourseRefund 课程退费流水
type CourseRefund struct {
	ID             int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CourseID       int64           `gorm:"not null;index;column:course_id" json:"course_id"`
	RefundSessions int             `gorm:"not null;column:refund_sessions" json:"refund_sessions"`
	RefundAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;column:refund_amount" json:"refund_amount"`
	RefundFee      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0;column:refund_fee" json:"refund_fee"`
	RefundChannel  string          `gorm:"type:varchar(20);not null;column:refund_channel" json:"refund_channel"`
	RefundReason   *string         `gorm:"type:varchar(255);column:refund_reason" json:"refund_reason,omitempty"`
	RefundDate     time.Time       `gorm:"not null;index;column:refund_date" json:"refund_date"`
	Status         string          `gorm:"type:varchar(20);not null;index;column:status" json:"status"`
	OperatorName   *string         `gorm:"type:varchar(50);column:operator_name" json:"operator_name,omitempty"`
	Remark         *string         `gorm:"type:varchar(255);column:remark" json:"remark,omitempty"`
	CancelReason   *string         `gorm:"type:varchar(255);column:cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

// TableName 表名
func (CourseRefund) TableName() string {
	return "course_refunds"
}

// NetPayout 客户实际到手金额
func (r *CourseRefund) NetPayout() decimal.Decimal {
	return r.RefundAmount.Sub(r.RefundFee)
}
