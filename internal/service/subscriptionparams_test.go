package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
)

// TestBuildParamsGroupsByBiz 跨业务目标拆分为每业务一条订阅参数
func TestBuildParamsGroupsByBiz(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{
		BkBizID: 10,
		Params:  model.Params{Protocol: "tcp", Period: 60},
		TargetNodes: []model.TargetNode{
			{BkBizID: 10, BkHostID: 1},
			{BkBizID: 20, BkHostID: 2},
			{BkHostID: 3}, // 缺省归属采集项业务
		},
	}

	params := builder.BuildParams(collector)
	require.Len(t, params, 2)

	byBiz := make(map[int]int)
	for _, p := range params {
		byBiz[p.Scope.BkBizID] = len(p.Scope.Nodes)
		assert.Equal(t, model.TargetObjectTypeHost, p.Scope.ObjectType)
		assert.Equal(t, model.TargetNodeTypeInstance, p.Scope.NodeType)
	}
	assert.Equal(t, 2, byBiz[10])
	assert.Equal(t, 1, byBiz[20])
}

// TestBuildParamsStep 插件步骤按协议生成
func TestBuildParamsStep(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{
		BkBizID:     2,
		BkDataID:    123,
		Params:      model.Params{Protocol: "HTTP", Period: 60},
		TargetNodes: []model.TargetNode{{BkHostID: 1}},
	}

	params := builder.BuildParams(collector)
	require.Len(t, params, 1)
	require.Len(t, params[0].Steps, 1)

	step := params[0].Steps[0]
	assert.Equal(t, "bkmonitorbeat_http", step.ID)
	assert.Equal(t, "PLUGIN", step.Type)
	assert.Equal(t, "bkmonitorbeat", step.Config.PluginName)
	assert.Equal(t, "latest", step.Config.PluginVersion)
	require.Len(t, step.Config.ConfigTemplates, 1)
	assert.Equal(t, "bkmonitorbeat_http.conf", step.Config.ConfigTemplates[0].Name)
	assert.Equal(t, 123, step.Params.Context["data_id"])
}

// TestBuildParamsTimeoutMath 超时推导规则
func TestBuildParamsTimeoutMath(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())

	// 未配置超时：available_duration = period*1000，低于下限时 max_timeout 取下限
	collector := &model.CollectorConfig{
		BkBizID:     2,
		Params:      model.Params{Protocol: "tcp", Period: 10},
		TargetNodes: []model.TargetNode{{BkHostID: 1}},
	}
	ctx := builder.BuildParams(collector)[0].Steps[0].Params.Context
	assert.Equal(t, "10000ms", ctx["available_duration"])
	assert.Equal(t, "15000ms", ctx["max_timeout"])
	assert.Equal(t, "10s", ctx["period"])

	// 超过下限时 max_timeout 放宽5秒
	collector.Params.Timeout = 20000
	ctx = builder.BuildParams(collector)[0].Steps[0].Params.Context
	assert.Equal(t, "20000ms", ctx["available_duration"])
	assert.Equal(t, "25000ms", ctx["max_timeout"])
}

// TestBuildParamsEscaping 请求响应模板双引号包裹并转义
func TestBuildParamsEscaping(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{
		BkBizID: 2,
		Params: model.Params{
			Protocol: "http",
			Period:   60,
			Request:  `GET / HTTP/1.1`,
			Response: `{"code": 0}`,
		},
		TargetNodes: []model.TargetNode{{BkHostID: 1}},
	}

	ctx := builder.BuildParams(collector)[0].Steps[0].Params.Context
	assert.Equal(t, `"GET / HTTP/1.1"`, ctx["request"])
	assert.Equal(t, `"{\"code\": 0}"`, ctx["response"])
}

// TestBuildParamsICMPLabels 仅ICMP注入 node_id 标签模板
func TestBuildParamsICMPLabels(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{
		BkBizID:     2,
		Params:      model.Params{Protocol: "icmp", Period: 60},
		TargetNodes: []model.TargetNode{{BkHostID: 1}},
	}

	ctx := builder.BuildParams(collector)[0].Steps[0].Params.Context
	labels, ok := ctx["labels"].(map[string]interface{})
	require.True(t, ok, "ICMP协议必须注入labels模板")
	assert.Equal(t, "cmdb_instance.scope", labels["$for"])
	assert.Equal(t, "scope", labels["$item"])

	// node_id 取自主机属性而非遍历变量，云区域字段兼容列表与标量两种形态
	body, ok := labels["$body"].(map[string]interface{})
	require.True(t, ok)
	nodeID, ok := body["node_id"].(string)
	require.True(t, ok)
	assert.Contains(t, nodeID, "cmdb_instance.host.bk_cloud_id")
	assert.Contains(t, nodeID, "cmdb_instance.host.bk_host_innerip")
	assert.NotContains(t, nodeID, "scope.")

	collector.Params.Protocol = "tcp"
	ctx = builder.BuildParams(collector)[0].Steps[0].Params.Context
	_, ok = ctx["labels"]
	assert.False(t, ok, "非ICMP协议不注入labels")
}

// TestBuildParamsScopeNodes 静态主机优先 bk_host_id，退化为 ip+云区域
func TestBuildParamsScopeNodes(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{
		BkBizID: 2,
		Params:  model.Params{Protocol: "tcp", Period: 60},
		TargetNodes: []model.TargetNode{
			{BkHostID: 42},
			{IP: "10.0.0.1", BkCloudID: 3},
		},
	}

	nodes := builder.BuildParams(collector)[0].Scope.Nodes
	require.Len(t, nodes, 2)
	assert.Equal(t, 42, nodes[0].BkHostID)
	assert.Empty(t, nodes[0].IP)
	assert.Equal(t, "10.0.0.1", nodes[1].IP)
	assert.Equal(t, 3, nodes[1].BkCloudID)
	require.NotNil(t, nodes[1].BkSupplierID)
}

// TestBuildParamsEmptyTargets 无目标时不产生订阅参数
func TestBuildParamsEmptyTargets(t *testing.T) {
	builder := NewParamsBuilder(testSubscriptionConfig(), testNamingConfig())
	collector := &model.CollectorConfig{BkBizID: 2, Params: model.Params{Protocol: "tcp"}}
	assert.Empty(t, builder.BuildParams(collector))
}
