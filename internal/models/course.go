package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CourseKind 课程类型
const (
	CourseKindTrial  = "trial"  // 试听课
	CourseKindFormal = "formal" // 正课（含续课）
)

// TrialStatus 试听课状态
const (
	TrialStatusRegistered    = "registered"     // 已报名
	TrialStatusNotRegistered = "not_registered" // 未报名
	TrialStatusScheduled     = "scheduled"      // 已排课
	TrialStatusCompleted     = "completed"      // 已试听
	TrialStatusConverted     = "converted"      // 已转正
	TrialStatusRefunded      = "refunded"       // 已退款
	TrialStatusNoAction      = "no_action"      // 无后续
	TrialStatusMisOperation  = "mis_operation"  // 误操作
)

// 渠道
const (
	ChannelTaobao = "淘宝"
	ChannelWechat = "微信"
)

// Course 课程，试听课与正课共用一张表，以 Kind 区分
type Course struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Kind               string    `gorm:"type:varchar(10);not null;index;column:kind" json:"kind"`
	CustomerID         int64     `gorm:"not null;index;column:customer_id" json:"customer_id"`
	AssignedEmployeeID *int64    `gorm:"index;column:assigned_employee_id" json:"assigned_employee_id,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index;column:created_at" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`

	// 试听课字段
	// TrialCustomerID 仅试听课写入客户ID，唯一索引保证一个客户最多一节试听课
	TrialCustomerID     *int64              `gorm:"uniqueIndex;column:trial_customer_id" json:"-"`
	TrialPrice          decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0;column:trial_price" json:"trial_price"`
	Source              string              `gorm:"type:varchar(50);column:source" json:"source,omitempty"`
	TrialStatus         string              `gorm:"type:varchar(20);index;column:trial_status" json:"trial_status,omitempty"`
	ConvertedToCourseID *int64              `gorm:"column:converted_to_course_id" json:"converted_to_course_id,omitempty"`
	CustomTrialCost     decimal.NullDecimal `gorm:"type:decimal(20,4);column:custom_trial_cost" json:"custom_trial_cost"`

	// 正课字段
	CourseType           string              `gorm:"type:varchar(50);column:course_type" json:"course_type,omitempty"`
	Sessions             int                 `gorm:"not null;default:0;column:sessions" json:"sessions"`
	GiftSessions         int                 `gorm:"not null;default:0;column:gift_sessions" json:"gift_sessions"`
	UnitPrice            decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0;column:unit_price" json:"unit_price"`
	OtherCost            decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0;column:other_cost" json:"other_cost"`
	PaymentChannel       string              `gorm:"type:varchar(20);column:payment_channel" json:"payment_channel,omitempty"`
	IsRenewal            bool                `gorm:"not null;default:false;column:is_renewal" json:"is_renewal"`
	RenewalFromCourseID  *int64              `gorm:"index;column:renewal_from_course_id" json:"renewal_from_course_id,omitempty"`
	ConvertedFromTrialID *int64              `gorm:"index;column:converted_from_trial_id" json:"converted_from_trial_id,omitempty"`
	SnapshotCourseCost   decimal.NullDecimal `gorm:"type:decimal(20,4);column:snapshot_course_cost" json:"snapshot_course_cost"`
	SnapshotFeeRate      decimal.NullDecimal `gorm:"type:decimal(20,6);column:snapshot_fee_rate" json:"snapshot_fee_rate"`
	CustomCourseCost     decimal.NullDecimal `gorm:"type:decimal(20,4);column:custom_course_cost" json:"custom_course_cost"`
	Meta                 datatypes.JSON      `gorm:"column:meta" json:"meta,omitempty"`
}

// TableName 表名
func (Course) TableName() string {
	return "courses"
}

// IsTrial 是否试听课
func (c *Course) IsTrial() bool {
	return c.Kind == CourseKindTrial
}

// IsFormal 是否正课（含续课）
func (c *Course) IsFormal() bool {
	return c.Kind == CourseKindFormal
}

// IsExcluded 误操作的试听课不参与任何统计
func (c *Course) IsExcluded() bool {
	return c.IsTrial() && c.TrialStatus == TrialStatusMisOperation
}

// Category 统计分类：trial / new / renewal
func (c *Course) Category() string {
	switch {
	case c.IsTrial():
		return CourseCategoryTrial
	case c.IsRenewal:
		return CourseCategoryRenewal
	default:
		return CourseCategoryNew
	}
}

// CourseCategory 统计分类
const (
	CourseCategoryTrial   = "trial"
	CourseCategoryNew     = "new"
	CourseCategoryRenewal = "renewal"
)
