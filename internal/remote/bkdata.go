package remote

import (
	"context"
	"net/http"
	"strconv"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
)

// DeployPlanParams 计算平台接入部署计划
type DeployPlanParams struct {
	BkBizID         int                    `json:"bk_biz_id"`
	DataScenario    string                 `json:"data_scenario"`
	PreassignedDataID int                  `json:"preassigned_data_id,omitempty"`
	AccessRawData   map[string]interface{} `json:"access_raw_data"`
}

// DeployPlanResult 部署计划返回
type DeployPlanResult struct {
	RawDataID int `json:"raw_data_id"`
}

// BkDataClient 计算平台接口
type BkDataClient interface {
	DeployPlanPost(ctx context.Context, params DeployPlanParams) (*DeployPlanResult, error)
	DeployPlanPut(ctx context.Context, rawDataID int, params DeployPlanParams) error
}

type bkDataClient struct {
	*client
}

// NewBkDataClient 创建计算平台客户端
func NewBkDataClient(cfg config.RemoteConfig) BkDataClient {
	return &bkDataClient{client: newClient(cfg.BkDataURL, cfg)}
}

func (c *bkDataClient) DeployPlanPost(ctx context.Context, params DeployPlanParams) (*DeployPlanResult, error) {
	var result DeployPlanResult
	if err := c.call(ctx, http.MethodPost, "/v3/access/deploy_plan/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *bkDataClient) DeployPlanPut(ctx context.Context, rawDataID int, params DeployPlanParams) error {
	path := "/v3/access/deploy_plan/" + strconv.Itoa(rawDataID) + "/"
	return c.call(ctx, http.MethodPut, path, params, nil)
}
