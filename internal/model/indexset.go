package model

import (
	"time"

	"gorm.io/gorm"
)

// LogIndexSet 索引集：采集项入库后的检索入口
type LogIndexSet struct {
	IndexSetID        int            `gorm:"primaryKey;autoIncrement" json:"index_set_id"`
	IndexSetName      string         `gorm:"size:128" json:"index_set_name"`
	CollectorConfigID int            `gorm:"column:collector_config_id;index" json:"collector_config_id"`
	ScenarioID        string         `gorm:"size:64" json:"scenario_id"`
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName table alias name
func (LogIndexSet) TableName() string {
	return "log_indexset"
}

// ArchiveConfig 归档配置；destroy 时按引用关系联动删除
type ArchiveConfig struct {
	ArchiveConfigID int       `gorm:"primaryKey;autoIncrement" json:"archive_config_id"`
	InstanceID      int       `gorm:"column:instance_id;index" json:"instance_id"`
	InstanceType    string    `gorm:"size:32" json:"instance_type"`
	TargetSnapshotRepositoryName string `gorm:"size:255" json:"target_snapshot_repository_name"`
	SnapshotDays    int       `json:"snapshot_days"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName table alias name
func (ArchiveConfig) TableName() string {
	return "log_archiveconfig"
}

// ArchiveInstanceTypeCollectorConfig 归档实例类型
const ArchiveInstanceTypeCollectorConfig = "collector_config"
