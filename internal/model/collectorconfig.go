package model

import (
	"time"

	"gorm.io/gorm"
)

// TargetNode 采集目标节点引用：动态拓扑节点或静态主机
// bk_biz_id 缺省时归属采集项所在业务
type TargetNode struct {
	BkBizID   int    `json:"bk_biz_id,omitempty"`
	BkInstID  int    `json:"bk_inst_id,omitempty"`
	BkObjID   string `json:"bk_obj_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	BkCloudID int    `json:"bk_cloud_id,omitempty"`
	BkHostID  int    `json:"bk_host_id,omitempty"`
}

// DiffNode 目标节点差异项
type DiffNode struct {
	Type     string `json:"type"`
	BkInstID int    `json:"bk_inst_id"`
	BkObjID  string `json:"bk_obj_id"`
}

// CollectorConfig 采集项配置 model
type CollectorConfig struct {
	CollectorConfigID      int          `gorm:"primaryKey;autoIncrement" json:"collector_config_id"`
	BkBizID                int          `gorm:"column:bk_biz_id;index" json:"bk_biz_id"`
	BkdataBizID            int          `gorm:"column:bkdata_biz_id" json:"bkdata_biz_id"`
	CollectorConfigName    string       `gorm:"size:128" json:"collector_config_name"`
	CollectorConfigNameEn  string       `gorm:"size:128;index" json:"collector_config_name_en"`
	CollectorScenarioID    string       `gorm:"size:64" json:"collector_scenario_id"`
	CustomType             string       `gorm:"size:32;default:log" json:"custom_type"`
	CategoryID             string       `gorm:"size:64" json:"category_id"`
	Description            string       `gorm:"type:text" json:"description"`
	BkDataID               int          `gorm:"column:bk_data_id" json:"bk_data_id"`
	BkDataName             string       `gorm:"size:128" json:"bk_data_name"`
	TableID                string       `gorm:"column:table_id;size:255" json:"table_id"`
	ETLProcessor           string       `gorm:"column:etl_processor;size:32;default:transfer" json:"etl_processor"`
	ETLConfig              string       `gorm:"column:etl_config;size:64" json:"etl_config"`
	DataLinkID             int          `gorm:"column:data_link_id" json:"data_link_id"`
	DataEncoding           string       `gorm:"size:32" json:"data_encoding"`
	IsActive               bool         `gorm:"default:true" json:"is_active"`
	IsDisplay              bool         `gorm:"default:true" json:"is_display"`
	Environment            string       `gorm:"size:32" json:"environment"`
	IsContainerEnvironment bool         `gorm:"column:is_container_environment" json:"is_container_environment"`
	TargetObjectType       string       `gorm:"size:32" json:"target_object_type"`
	TargetNodeType         string       `gorm:"size:32" json:"target_node_type"`
	TargetNodes            []TargetNode `gorm:"serializer:json" json:"target_nodes"`
	TargetSubscriptionDiff []DiffNode   `gorm:"serializer:json" json:"target_subscription_diff"`
	TaskIDList             []string     `gorm:"serializer:json" json:"task_id_list"`
	IndexSetID             int          `gorm:"column:index_set_id" json:"index_set_id"`
	LogGroupID             int          `gorm:"column:log_group_id" json:"log_group_id"`
	StorageClusterID       int          `gorm:"column:storage_cluster_id" json:"storage_cluster_id"`
	ITSMTicketSN           string       `gorm:"column:itsm_ticket_sn;size:64" json:"itsm_ticket_sn"`
	Params                 Params       `gorm:"serializer:json" json:"params"`
	CreatedBy              string       `gorm:"size:32" json:"created_by"`
	UpdatedBy              string       `gorm:"size:32" json:"updated_by"`
	CreatedAt              time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName table alias name
func (CollectorConfig) TableName() string {
	return "log_collectorconfig"
}

// Params 采集参数：协议上报与插件下发所需的原始配置
type Params struct {
	Protocol          string   `json:"protocol,omitempty"`
	Period            int      `json:"period,omitempty"`
	Timeout           int      `json:"timeout,omitempty"`
	TargetPort        int      `json:"target_port,omitempty"`
	Request           string   `json:"request,omitempty"`
	Response          string   `json:"response,omitempty"`
	ResponseFormat    string   `json:"response_format,omitempty"`
	Size              int      `json:"size,omitempty"`
	TotalNum          int      `json:"total_num,omitempty"`
	MaxRTT            int      `json:"max_rtt,omitempty"`
	Encoding          string   `json:"encoding,omitempty"`
	Paths             []string `json:"paths,omitempty"`
	MultilinePattern  string   `json:"multiline_pattern,omitempty"`
	MultilineMaxLines int      `json:"multiline_max_lines,omitempty"`
	RunTask           *bool    `json:"run_task,omitempty"`
}

// GetBkdataBizID 数据归属业务：优先 bkdata_biz_id
func (c *CollectorConfig) GetBkdataBizID() int {
	if c.BkdataBizID != 0 {
		return c.BkdataBizID
	}
	return c.BkBizID
}

// LatestTaskID 最近一次订阅任务ID，无任务时返回空串
func (c *CollectorConfig) LatestTaskID() string {
	if len(c.TaskIDList) == 0 {
		return ""
	}
	return c.TaskIDList[len(c.TaskIDList)-1]
}
