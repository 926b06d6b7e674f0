package remote

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
)

// ScopeNode 订阅范围内的一台主机：IPv6业务用 bk_host_id，其余用 ip+云区域
type ScopeNode struct {
	BkHostID     int    `json:"bk_host_id,omitempty"`
	IP           string `json:"ip,omitempty"`
	BkCloudID    int    `json:"bk_cloud_id,omitempty"`
	BkSupplierID *int   `json:"bk_supplier_id,omitempty"`
}

// Scope 订阅目标范围
type Scope struct {
	BkBizID    int         `json:"bk_biz_id"`
	ObjectType string      `json:"object_type"`
	NodeType   string      `json:"node_type"`
	Nodes      []ScopeNode `json:"nodes"`
}

// ConfigTemplate 插件配置模板
type ConfigTemplate struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// StepConfig 插件步骤配置
type StepConfig struct {
	PluginName      string           `json:"plugin_name"`
	PluginVersion   string           `json:"plugin_version"`
	ConfigTemplates []ConfigTemplate `json:"config_templates"`
}

// Step 订阅步骤
type Step struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Config StepConfig `json:"config"`
	Params StepParams `json:"params"`
}

// StepParams 步骤参数，context 渲染进配置模板
type StepParams struct {
	Context map[string]interface{} `json:"context"`
}

// SubscriptionParams 单个业务的订阅参数
type SubscriptionParams struct {
	SubscriptionID int    `json:"subscription_id,omitempty"`
	Scope          Scope  `json:"scope"`
	Steps          []Step `json:"steps"`
	RunImmediately bool   `json:"run_immediately"`
}

// SubscriptionResult 创建/更新订阅返回
type SubscriptionResult struct {
	SubscriptionID int `json:"subscription_id"`
	TaskID         int `json:"task_id"`
}

// SwitchSubscriptionParams 启停订阅监听
type SwitchSubscriptionParams struct {
	SubscriptionID int    `json:"subscription_id"`
	Action         string `json:"action"`
	BkBizID        int    `json:"bk_biz_id,omitempty"`
}

// RunScope 指定实例范围触发任务
type RunScope struct {
	BkBizID  int         `json:"bk_biz_id"`
	NodeType string      `json:"node_type,omitempty"`
	Nodes    []ScopeNode `json:"nodes,omitempty"`
}

// RunSubscriptionTaskParams 触发订阅任务
type RunSubscriptionTaskParams struct {
	SubscriptionID int               `json:"subscription_id"`
	BkBizID        int               `json:"bk_biz_id,omitempty"`
	Actions        map[string]string `json:"actions,omitempty"`
	Scope          *RunScope         `json:"scope,omitempty"`
}

// RunTaskResult 任务触发返回
type RunTaskResult struct {
	TaskID int `json:"task_id"`
}

// RetrySubscriptionParams 重试指定实例
type RetrySubscriptionParams struct {
	SubscriptionID int      `json:"subscription_id"`
	InstanceIDList []string `json:"instance_id_list"`
	BkBizID        int      `json:"bk_biz_id,omitempty"`
}

// DeleteSubscriptionParams 删除订阅
type DeleteSubscriptionParams struct {
	SubscriptionID int `json:"subscription_id"`
	BkBizID        int `json:"bk_biz_id,omitempty"`
}

// StatusCount 单个状态下的实例数量
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// SubscriptionStatistic 订阅统计
type SubscriptionStatistic struct {
	SubscriptionID int           `json:"subscription_id"`
	Instances      int           `json:"instances"`
	Status         []StatusCount `json:"status"`
}

// SubscriptionStatisticParams 批量查询订阅统计
type SubscriptionStatisticParams struct {
	SubscriptionIDList []int  `json:"subscription_id_list"`
	PluginName         string `json:"plugin_name"`
}

// CloudID 云区域ID；节点管理部分接口返回 [{bk_inst_id}] 列表
type CloudID int

// UnmarshalJSON 兼容数值与列表两种格式
func (c *CloudID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = CloudID(n)
		return nil
	}
	var list []struct {
		BkInstID int `json:"bk_inst_id"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if len(list) > 0 {
		*c = CloudID(list[0].BkInstID)
	}
	return nil
}

// HostInfo 实例宿主机信息
type HostInfo struct {
	BkHostID          int     `json:"bk_host_id"`
	BkHostInnerIP     string  `json:"bk_host_innerip"`
	BkHostInnerIPv6   string  `json:"bk_host_innerip_v6"`
	BkHostName        string  `json:"bk_host_name"`
	BkCloudID         CloudID `json:"bk_cloud_id"`
	BkSupplierAccount string  `json:"bk_supplier_account"`
}

// InstanceInfo 实例信息
type InstanceInfo struct {
	Host HostInfo `json:"host"`
}

// SubStep 子步骤执行详情
type SubStep struct {
	NodeName string `json:"node_name"`
	Status   string `json:"status"`
	Log      string `json:"log"`
	ExData   string `json:"ex_data"`
}

// TargetHost 步骤目标主机
type TargetHost struct {
	SubSteps []SubStep `json:"sub_steps"`
}

// InstanceStep 实例步骤
type InstanceStep struct {
	ID          string       `json:"id"`
	NodeName    string       `json:"node_name"`
	Action      string       `json:"action"`
	Status      string       `json:"status"`
	TargetHosts []TargetHost `json:"target_hosts"`
}

// TaskInstanceStatus 单实例任务状态
type TaskInstanceStatus struct {
	InstanceID   string         `json:"instance_id"`
	TaskID       int            `json:"task_id"`
	Status       string         `json:"status"`
	CreateTime   string         `json:"create_time"`
	Steps        []InstanceStep `json:"steps"`
	InstanceInfo InstanceInfo   `json:"instance_info"`
}

// TaskStatusParams 查询订阅任务状态
type TaskStatusParams struct {
	SubscriptionID int  `json:"subscription_id"`
	NeedDetail     bool `json:"need_detail"`
	Page           int  `json:"page"`
	PageSize       int  `json:"pagesize"`
}

// TaskStatusResult 订阅任务状态分页返回
type TaskStatusResult struct {
	List  []TaskInstanceStatus `json:"list"`
	Total int                  `json:"total"`
}

// NodeManClient 节点管理接口
type NodeManClient interface {
	CreateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionResult, error)
	UpdateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionResult, error)
	SwitchSubscription(ctx context.Context, params SwitchSubscriptionParams) error
	RunSubscriptionTask(ctx context.Context, params RunSubscriptionTaskParams) (*RunTaskResult, error)
	RetrySubscription(ctx context.Context, params RetrySubscriptionParams) (*RunTaskResult, error)
	DeleteSubscription(ctx context.Context, params DeleteSubscriptionParams) error
	SubscriptionStatistic(ctx context.Context, params SubscriptionStatisticParams) ([]SubscriptionStatistic, error)
	GetSubscriptionTaskStatus(ctx context.Context, params TaskStatusParams) (*TaskStatusResult, error)
}

type nodeManClient struct {
	*client
}

// NewNodeManClient 创建节点管理客户端
func NewNodeManClient(cfg config.RemoteConfig) NodeManClient {
	return &nodeManClient{client: newClient(cfg.NodeManURL, cfg)}
}

func (c *nodeManClient) CreateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionResult, error) {
	var result SubscriptionResult
	if err := c.call(ctx, http.MethodPost, "/api/subscription/create/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *nodeManClient) UpdateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionResult, error) {
	var result SubscriptionResult
	if err := c.call(ctx, http.MethodPost, "/api/subscription/update/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *nodeManClient) SwitchSubscription(ctx context.Context, params SwitchSubscriptionParams) error {
	return c.call(ctx, http.MethodPost, "/api/subscription/switch/", params, nil)
}

func (c *nodeManClient) RunSubscriptionTask(ctx context.Context, params RunSubscriptionTaskParams) (*RunTaskResult, error) {
	var result RunTaskResult
	if err := c.call(ctx, http.MethodPost, "/api/subscription/run/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *nodeManClient) RetrySubscription(ctx context.Context, params RetrySubscriptionParams) (*RunTaskResult, error) {
	var result RunTaskResult
	if err := c.call(ctx, http.MethodPost, "/api/subscription/retry/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *nodeManClient) DeleteSubscription(ctx context.Context, params DeleteSubscriptionParams) error {
	return c.call(ctx, http.MethodPost, "/api/subscription/delete/", params, nil)
}

func (c *nodeManClient) SubscriptionStatistic(ctx context.Context, params SubscriptionStatisticParams) ([]SubscriptionStatistic, error) {
	var result []SubscriptionStatistic
	if err := c.call(ctx, http.MethodPost, "/api/subscription/statistic/", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *nodeManClient) GetSubscriptionTaskStatus(ctx context.Context, params TaskStatusParams) (*TaskStatusResult, error) {
	var result TaskStatusResult
	if err := c.call(ctx, http.MethodPost, "/api/subscription/task_status/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
