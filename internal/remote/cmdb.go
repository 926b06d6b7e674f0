package remote

import (
	"context"
	"net/http"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
)

// ListBizHostsParams 查询业务主机
type ListBizHostsParams struct {
	BkBizID            int                    `json:"bk_biz_id"`
	Fields             []string               `json:"fields"`
	Page               CMDBPage               `json:"page"`
	HostPropertyFilter map[string]interface{} `json:"host_property_filter,omitempty"`
}

// CMDBPage 分页参数
type CMDBPage struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
}

// CMDBHost 主机信息
type CMDBHost struct {
	BkHostID      int    `json:"bk_host_id"`
	BkHostInnerIP string `json:"bk_host_innerip"`
	BkCloudID     int    `json:"bk_cloud_id"`
}

// ListBizHostsResult 查询业务主机返回
type ListBizHostsResult struct {
	Count int        `json:"count"`
	Info  []CMDBHost `json:"info"`
}

// CMDBClient 配置平台接口
type CMDBClient interface {
	ListBizHosts(ctx context.Context, params ListBizHostsParams) (*ListBizHostsResult, error)
}

type cmdbClient struct {
	*client
}

// NewCMDBClient 创建配置平台客户端
func NewCMDBClient(cfg config.RemoteConfig) CMDBClient {
	return &cmdbClient{client: newClient(cfg.CMDBURL, cfg)}
}

func (c *cmdbClient) ListBizHosts(ctx context.Context, params ListBizHostsParams) (*ListBizHostsResult, error) {
	var result ListBizHostsResult
	if err := c.call(ctx, http.MethodPost, "/api/c/compapi/v2/cc/list_biz_hosts/", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
