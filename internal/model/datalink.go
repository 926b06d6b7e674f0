package model

import "time"

// DataLinkConfig 数据链路配置；bk_biz_id 为 0 表示公共链路
type DataLinkConfig struct {
	DataLinkID   int       `gorm:"primaryKey;autoIncrement" json:"data_link_id"`
	LinkGroupName string   `gorm:"size:64" json:"link_group_name"`
	BkBizID      int       `gorm:"column:bk_biz_id;index" json:"bk_biz_id"`
	KafkaClusterID int     `gorm:"column:kafka_cluster_id" json:"kafka_cluster_id"`
	TransferClusterID string `gorm:"column:transfer_cluster_id;size:50" json:"transfer_cluster_id"`
	ESClusterIDs []int     `gorm:"serializer:json" json:"es_cluster_ids"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName table alias name
func (DataLinkConfig) TableName() string {
	return "log_datalinkconfig"
}

// StorageClusterGroup 业务可用的存储集群；bk_biz_id 为 0 表示公共集群
type StorageClusterGroup struct {
	ID               int       `gorm:"primaryKey;autoIncrement" json:"id"`
	BkBizID          int       `gorm:"column:bk_biz_id;index" json:"bk_biz_id"`
	StorageClusterID int       `gorm:"column:storage_cluster_id" json:"storage_cluster_id"`
	StorageClusterName string  `gorm:"size:128" json:"storage_cluster_name"`
	IsPublic         bool      `gorm:"column:is_public" json:"is_public"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName table alias name
func (StorageClusterGroup) TableName() string {
	return "log_storageclustergroup"
}
