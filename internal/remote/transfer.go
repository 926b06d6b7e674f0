package remote

import (
	"context"
	"net/http"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
)

// CreateDataIDParams 创建数据源
type CreateDataIDParams struct {
	DataName     string `json:"data_name"`
	ETLConfig    string `json:"etl_config"`
	DataLinkID   int    `json:"data_link_id,omitempty"`
	Description  string `json:"data_description"`
	Encoding     string `json:"encoding,omitempty"`
	TypeLabel    string `json:"type_label"`
	SourceLabel  string `json:"source_label"`
	Operator     string `json:"operator,omitempty"`
}

// ModifyDataIDParams 修改数据源名称
type ModifyDataIDParams struct {
	DataID   int    `json:"data_id"`
	DataName string `json:"data_name"`
}

// DataIDResult 数据源返回
type DataIDResult struct {
	BkDataID int `json:"bk_data_id"`
}

// ClusterConfig 存储集群配置
type ClusterConfig struct {
	ClusterID   int    `json:"cluster_id"`
	ClusterName string `json:"cluster_name"`
	DisplayName string `json:"display_name,omitempty"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Retention int `json:"retention"`
}

// ClusterInfo 单个结果表的存储信息
type ClusterInfo struct {
	ClusterConfig ClusterConfig `json:"cluster_config"`
	StorageConfig StorageConfig `json:"storage_config"`
}

// ResultTableStorageParams 批量查询结果表存储
type ResultTableStorageParams struct {
	ResultTableList string `json:"result_table_list"`
	StorageType     string `json:"storage_type"`
}

// ResultTable 结果表信息
type ResultTable struct {
	TableID     string `json:"table_id"`
	TableNameZh string `json:"table_name_zh"`
	IsEnable    bool   `json:"is_enable"`
}

// SwitchResultTableParams 结果表启停
type SwitchResultTableParams struct {
	TableID  string `json:"table_id"`
	IsEnable bool   `json:"is_enable"`
}

// CreateLogGroupParams 创建自定义日志组
type CreateLogGroupParams struct {
	BkDataID     int    `json:"bk_data_id"`
	BkBizID      int    `json:"bk_biz_id"`
	LogGroupName string `json:"log_group_name"`
	Label        string `json:"label"`
	Operator     string `json:"operator"`
}

// LogGroupResult 日志组返回
type LogGroupResult struct {
	LogGroupID  int    `json:"log_group_id"`
	BkDataToken string `json:"bk_data_token"`
}

// KafkaTailParams 数据采样
type KafkaTailParams struct {
	BkDataID  int    `json:"bk_data_id"`
	Namespace string `json:"namespace"`
}

// KafkaTailMessage 采样消息
type KafkaTailMessage struct {
	Items []KafkaTailItem        `json:"items"`
	Raw   map[string]interface{} `json:"raw,omitempty"`
}

// KafkaTailItem 采样消息单条数据
type KafkaTailItem struct {
	Data           string `json:"data"`
	IterationIndex int    `json:"iterationindex"`
}

// TransferClient 元数据服务接口
type TransferClient interface {
	CreateDataID(ctx context.Context, params CreateDataIDParams) (*DataIDResult, error)
	ModifyDataID(ctx context.Context, params ModifyDataIDParams) error
	GetResultTable(ctx context.Context, tableID string) (*ResultTable, error)
	GetResultTableStorage(ctx context.Context, params ResultTableStorageParams) (map[string]ClusterInfo, error)
	SwitchResultTable(ctx context.Context, params SwitchResultTableParams) error
	CreateLogGroup(ctx context.Context, params CreateLogGroupParams) (*LogGroupResult, error)
	ListKafkaTail(ctx context.Context, params KafkaTailParams) ([]KafkaTailMessage, error)
	DeleteDataID(ctx context.Context, dataID int, dataName string) error
}

type transferClient struct {
	*client
}

// NewTransferClient 创建元数据服务客户端
func NewTransferClient(cfg config.RemoteConfig) TransferClient {
	return &transferClient{client: newClient(cfg.TransferURL, cfg)}
}

func (c *transferClient) CreateDataID(ctx context.Context, params CreateDataIDParams) (*DataIDResult, error) {
	var result DataIDResult
	if err := c.call(ctx, http.MethodPost, "/api/metadata/create_data_id/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *transferClient) ModifyDataID(ctx context.Context, params ModifyDataIDParams) error {
	return c.call(ctx, http.MethodPost, "/api/metadata/modify_data_id/", params, nil)
}

func (c *transferClient) GetResultTable(ctx context.Context, tableID string) (*ResultTable, error) {
	var result ResultTable
	params := map[string]string{"table_id": tableID}
	if err := c.call(ctx, http.MethodPost, "/api/metadata/get_result_table/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *transferClient) GetResultTableStorage(ctx context.Context, params ResultTableStorageParams) (map[string]ClusterInfo, error) {
	result := make(map[string]ClusterInfo)
	if err := c.call(ctx, http.MethodPost, "/api/metadata/get_result_table_storage/", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *transferClient) SwitchResultTable(ctx context.Context, params SwitchResultTableParams) error {
	return c.call(ctx, http.MethodPost, "/api/metadata/switch_result_table/", params, nil)
}

func (c *transferClient) CreateLogGroup(ctx context.Context, params CreateLogGroupParams) (*LogGroupResult, error) {
	var result LogGroupResult
	if err := c.call(ctx, http.MethodPost, "/api/metadata/create_log_group/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *transferClient) ListKafkaTail(ctx context.Context, params KafkaTailParams) ([]KafkaTailMessage, error) {
	var result []KafkaTailMessage
	if err := c.call(ctx, http.MethodPost, "/api/metadata/list_kafka_tail/", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *transferClient) DeleteDataID(ctx context.Context, dataID int, dataName string) error {
	params := map[string]interface{}{"data_id": dataID, "data_name": dataName}
	return c.call(ctx, http.MethodPost, "/api/metadata/delete_data_id/", params, nil)
}
