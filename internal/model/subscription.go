package model

import (
	"time"
)

// SubscriptionBinding 采集项在单个业务下的节点管理订阅绑定
// 唯一性约束：(collector_config_id, bk_biz_id)。
// 绑定下线时物理删除，软删行会占住唯一键导致业务移出再移入后无法重建
type SubscriptionBinding struct {
	ID                int       `gorm:"primaryKey;autoIncrement" json:"id"`
	CollectorConfigID int       `gorm:"column:collector_config_id;index:idx_collector_biz,unique" json:"collector_config_id"`
	BkBizID           int       `gorm:"column:bk_biz_id;index:idx_collector_biz,unique" json:"bk_biz_id"`
	SubscriptionID    int       `gorm:"column:subscription_id" json:"subscription_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName table alias name
func (SubscriptionBinding) TableName() string {
	return "log_subscriptionbinding"
}

// ContainerCollectorConfig 容器环境子采集配置
type ContainerCollectorConfig struct {
	ID                int       `gorm:"primaryKey;autoIncrement" json:"id"`
	CollectorConfigID int       `gorm:"column:collector_config_id;index" json:"collector_config_id"`
	CollectorType     string    `gorm:"size:32" json:"collector_type"`
	Status            string    `gorm:"size:16" json:"status"`
	StatusDetail      string    `gorm:"type:text" json:"status_detail"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName table alias name
func (ContainerCollectorConfig) TableName() string {
	return "log_containercollectorconfig"
}
