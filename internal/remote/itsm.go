package remote

import (
	"context"
	"net/http"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
)

// TicketStatusParams 查询单据状态
type TicketStatusParams struct {
	SN string `json:"sn"`
}

// TicketStatusResult 单据状态返回
type TicketStatusResult struct {
	CurrentStatus string `json:"current_status"`
}

// ITSMClient 流程服务接口
type ITSMClient interface {
	GetTicketStatus(ctx context.Context, sn string) (*TicketStatusResult, error)
}

type itsmClient struct {
	*client
}

// NewITSMClient 创建流程服务客户端
func NewITSMClient(cfg config.RemoteConfig) ITSMClient {
	return &itsmClient{client: newClient(cfg.ITSMURL, cfg)}
}

func (c *itsmClient) GetTicketStatus(ctx context.Context, sn string) (*TicketStatusResult, error) {
	var result TicketStatusResult
	if err := c.call(ctx, http.MethodPost, "/api/itsm/get_ticket_status/", TicketStatusParams{SN: sn}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
