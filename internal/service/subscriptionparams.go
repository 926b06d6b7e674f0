package service

import (
	"fmt"
	"strings"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
)

// ParamsBuilder 订阅参数构造器：按业务拆分目标并渲染插件步骤上下文
type ParamsBuilder struct {
	cfg config.SubscriptionConfig
	// bkSupplierID 静态IP节点下发时携带的开发商ID
	bkSupplierID int
}

// NewParamsBuilder 创建订阅参数构造器
func NewParamsBuilder(subCfg config.SubscriptionConfig, namingCfg config.NamingConfig) *ParamsBuilder {
	return &ParamsBuilder{cfg: subCfg, bkSupplierID: namingCfg.BkSupplierID}
}

// addEscape 将模板字面量包进双引号，内部双引号转义
func addEscape(value string) string {
	if value == "" {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}

// BuildParams 按 bk_biz_id 分组目标节点，每个业务一条订阅参数
func (b *ParamsBuilder) BuildParams(collector *model.CollectorConfig) []*remote.SubscriptionParams {
	grouped := make(map[int][]remote.ScopeNode)
	var order []int
	for _, node := range collector.TargetNodes {
		bizID := node.BkBizID
		if bizID == 0 {
			bizID = collector.BkBizID
		}
		scopeNode := b.buildScopeNode(node)
		if _, ok := grouped[bizID]; !ok {
			order = append(order, bizID)
		}
		grouped[bizID] = append(grouped[bizID], scopeNode)
	}

	params := make([]*remote.SubscriptionParams, 0, len(grouped))
	for _, bizID := range order {
		params = append(params, &remote.SubscriptionParams{
			Scope: remote.Scope{
				BkBizID:    bizID,
				ObjectType: model.TargetObjectTypeHost,
				NodeType:   model.TargetNodeTypeInstance,
				Nodes:      grouped[bizID],
			},
			Steps: []remote.Step{b.buildStep(collector)},
		})
	}
	return params
}

// buildScopeNode 静态主机优先 bk_host_id，退化为 ip+云区域+开发商
func (b *ParamsBuilder) buildScopeNode(node model.TargetNode) remote.ScopeNode {
	if node.BkHostID != 0 {
		return remote.ScopeNode{BkHostID: node.BkHostID}
	}
	supplier := b.bkSupplierID
	return remote.ScopeNode{
		IP:           node.IP,
		BkCloudID:    node.BkCloudID,
		BkSupplierID: &supplier,
	}
}

func (b *ParamsBuilder) buildStep(collector *model.CollectorConfig) remote.Step {
	proto := strings.ToLower(collector.Params.Protocol)
	if proto == "" {
		proto = "log"
	}
	stepID := fmt.Sprintf("%s_%s", b.cfg.PluginName, proto)
	return remote.Step{
		ID:   stepID,
		Type: "PLUGIN",
		Config: remote.StepConfig{
			PluginName:    b.cfg.PluginName,
			PluginVersion: "latest",
			ConfigTemplates: []remote.ConfigTemplate{
				{Name: stepID + ".conf", Version: "latest"},
			},
		},
		Params: remote.StepParams{Context: b.buildContext(collector, proto)},
	}
}

// buildContext 渲染插件配置模板上下文
// 超时规则：available_duration 取用户超时，未配置时取 period*1000；
// 超过下限时 max_timeout 额外放宽5秒
func (b *ParamsBuilder) buildContext(collector *model.CollectorConfig, proto string) map[string]interface{} {
	p := collector.Params

	dataID := collector.BkDataID
	if id, ok := b.cfg.DataIDs[proto]; ok {
		dataID = id
	}

	availableDuration := p.Timeout
	if availableDuration == 0 {
		availableDuration = p.Period * 1000
	}
	maxTimeout := b.cfg.DefaultMaxTimeoutMS
	if availableDuration > b.cfg.DefaultMaxTimeoutMS {
		maxTimeout = availableDuration + 5000
	}

	context := map[string]interface{}{
		"data_id":            dataID,
		"max_timeout":        fmt.Sprintf("%dms", maxTimeout),
		"period":             fmt.Sprintf("%ds", p.Period),
		"available_duration": fmt.Sprintf("%dms", availableDuration),
		"timeout":            fmt.Sprintf("%dms", availableDuration),
		"target_port":        p.TargetPort,
		"request":            addEscape(p.Request),
		"response":           addEscape(p.Response),
		"response_format":    p.ResponseFormat,
		"size":               p.Size,
		"total_num":          p.TotalNum,
		"max_rtt":            p.MaxRTT,
	}

	// ICMP 批量探测按主机注入 node_id 标签
	if proto == "icmp" {
		context["labels"] = map[string]interface{}{
			"$for":  "cmdb_instance.scope",
			"$item": "scope",
			"$body": map[string]interface{}{
				"node_id": "{{ cmdb_instance.host.bk_cloud_id[0].id if cmdb_instance.host.bk_cloud_id is iterable and cmdb_instance.host.bk_cloud_id is not string else cmdb_instance.host.bk_cloud_id }}:{{ cmdb_instance.host.bk_host_innerip }}",
			},
		}
	}
	return context
}
