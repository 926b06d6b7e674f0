package model

// CollectStatus 订阅实例状态
const (
	CollectStatusSuccess    = "SUCCESS"
	CollectStatusFailed     = "FAILED"
	CollectStatusPending    = "PENDING"
	CollectStatusRunning    = "RUNNING"
	CollectStatusTerminated = "TERMINATED"
	CollectStatusUnknown    = "UNKNOWN"
	CollectStatusPrepare    = "PREPARE"
)

// RunStatus 采集项运行状态展示名
const (
	RunStatusSuccess    = "成功"
	RunStatusFailed     = "失败"
	RunStatusPartFailed = "部分失败"
	RunStatusRunning    = "部署中"
	RunStatusTerminated = "已停用"
	RunStatusUnknown    = "未知"
	RunStatusPrepare    = "准备中"
)

// StatusName 根据订阅状态取展示名
func StatusName(status string) string {
	switch status {
	case CollectStatusSuccess:
		return RunStatusSuccess
	case CollectStatusFailed:
		return RunStatusFailed
	case CollectStatusRunning:
		return RunStatusRunning
	case CollectStatusTerminated:
		return RunStatusTerminated
	case CollectStatusPrepare:
		return RunStatusPrepare
	default:
		return RunStatusUnknown
	}
}

// TargetObjectType 采集对象类型
const (
	TargetObjectTypeHost    = "HOST"
	TargetObjectTypeService = "SERVICE"
)

// TargetNodeType 采集目标节点类型
const (
	TargetNodeTypeInstance        = "INSTANCE"
	TargetNodeTypeTopo            = "TOPO"
	TargetNodeTypeServiceTemplate = "SERVICE_TEMPLATE"
	TargetNodeTypeSetTemplate     = "SET_TEMPLATE"
	TargetNodeTypeDynamicGroup    = "DYNAMIC_GROUP"
)

// Environment 采集环境
const (
	EnvironmentHost      = "linux"
	EnvironmentContainer = "container"
)

// ETLProcessor 清洗处理器
const (
	ETLProcessorTransfer = "transfer"
	ETLProcessorBKBase   = "bkbase"
)

// 订阅任务动作
const (
	ActionStart     = "START"
	ActionStop      = "STOP"
	ActionInstall   = "INSTALL"
	ActionUninstall = "UNINSTALL"
)

// CustomType 自定义上报类型
const (
	CustomTypeLog     = "log"
	CustomTypeOtlpLog = "otlp_log"
)

// 容器采集子配置状态
const (
	ContainerCollectStatusPending = "PENDING"
	ContainerCollectStatusRunning = "RUNNING"
	ContainerCollectStatusFailed  = "FAILED"
	ContainerCollectStatusSuccess = "SUCCESS"
)

// NodeManNotFoundCode 节点管理"主机无订阅"错误码
const NodeManNotFoundCode = "3800005"

// DiffTypeAdd / DiffTypeDelete 目标节点差异类型
const (
	DiffTypeAdd    = "add"
	DiffTypeDelete = "delete"
)
