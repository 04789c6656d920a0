package models

import (
	"time"
)

// SystemConfig 系统配置，业务参数以字符串保存
type SystemConfig struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Key         string    `gorm:"type:varchar(100);uniqueIndex;not null;column:key" json:"key"`
	Value       string    `gorm:"type:text;not null;column:value" json:"value"`
	Description *string   `gorm:"type:varchar(255);column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (SystemConfig) TableName() string {
	return "system_configs"
}

// 业务配置键
const (
	ConfigKeyTrialCost         = "trial_cost"
	ConfigKeyCourseCost        = "course_cost"
	ConfigKeyTaobaoFeeRate     = "taobao_fee_rate"
	ConfigKeyShareholderAName  = "shareholder_a_name"
	ConfigKeyShareholderBName  = "shareholder_b_name"
	ConfigKeyShareholderARatio = "shareholder_a_ratio"
	ConfigKeyShareholderBRatio = "shareholder_b_ratio"
)

// AllModels 返回需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Customer{},
		&Course{},
		&CourseRefund{},
		&ShillOrder{},
		&Employee{},
		&CommissionConfig{},
		&OperationalCost{},
		&DividendRecord{},
		&DividendSummary{},
		&SystemConfig{},
	}
}
