// Package models 定义数据模型
package models

import "time"

// Customer 客户
type Customer struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null;column:name" json:"name"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null;column:phone" json:"phone"`
	Grade     *string   `gorm:"type:varchar(20);column:grade" json:"grade,omitempty"`
	Region    *string   `gorm:"type:varchar(50);column:region" json:"region,omitempty"`
	Source    *string   `gorm:"type:varchar(50);column:source" json:"source,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Customer) TableName() string {
	return "customers"
}
