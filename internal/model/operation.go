package model

import "time"

// 用户操作类型
const (
	OperationActionCreate  = "create"
	OperationActionUpdate  = "update"
	OperationActionStart   = "start"
	OperationActionStop    = "stop"
	OperationActionDestroy = "destroy"
	OperationActionRetry   = "retry"
)

// UserOperationRecord 用户操作审计记录，写入失败只记日志
type UserOperationRecord struct {
	RecordID       string    `gorm:"primaryKey;size:64" json:"record_id"`
	Username       string    `gorm:"size:64" json:"username"`
	BkBizID        int       `gorm:"column:bk_biz_id;index" json:"bk_biz_id"`
	RecordType     string    `gorm:"size:32" json:"record_type"`
	RecordObjectID int       `gorm:"column:record_object_id;index" json:"record_object_id"`
	Action         string    `gorm:"size:32" json:"action"`
	Params         string    `gorm:"type:text" json:"params"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName table alias name
func (UserOperationRecord) TableName() string {
	return "log_useroperationrecord"
}

// RecordTypeCollector 采集项操作记录类型
const RecordTypeCollector = "collector"
