package database

import (
	"time"

	"gorm.io/datatypes"
)

// Entry 是一条按名称保存的 JSON 记录（文档与主题/纸张设置各占一条）。
type Entry struct {
	Key       string         `gorm:"primaryKey;size:128"`
	Value     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "cv_entries"
}
