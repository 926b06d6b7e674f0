package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
)

// TestDiffTargetNodes 差异即两个方向的集合差
func TestDiffTargetNodes(t *testing.T) {
	current := []model.TargetNode{
		{BkInstID: 4, BkObjID: "module"},
		{BkInstID: 5, BkObjID: "module"},
	}
	proposed := []model.TargetNode{
		{BkInstID: 5, BkObjID: "module"},
		{BkInstID: 6, BkObjID: "set"},
	}

	diff := DiffTargetNodes(current, proposed)
	assert.Len(t, diff, 2)

	byType := make(map[string][]model.DiffNode)
	for _, d := range diff {
		byType[d.Type] = append(byType[d.Type], d)
	}
	assert.Equal(t, []model.DiffNode{{Type: model.DiffTypeAdd, BkInstID: 6, BkObjID: "set"}}, byType[model.DiffTypeAdd])
	assert.Equal(t, []model.DiffNode{{Type: model.DiffTypeDelete, BkInstID: 4, BkObjID: "module"}}, byType[model.DiffTypeDelete])
}

// TestDiffTargetNodesIdentical 相同集合差异为空
func TestDiffTargetNodesIdentical(t *testing.T) {
	nodes := []model.TargetNode{
		{BkInstID: 4, BkObjID: "module"},
		{IP: "127.0.0.1", BkCloudID: 0},
		{BkHostID: 42},
	}
	assert.Empty(t, DiffTargetNodes(nodes, nodes))
}

// TestDiffTargetNodesSkipsEmptyRefs 缺失全部键的节点被跳过
func TestDiffTargetNodesSkipsEmptyRefs(t *testing.T) {
	current := []model.TargetNode{{}}
	proposed := []model.TargetNode{{BkInstID: 4, BkObjID: "module"}, {}}

	diff := DiffTargetNodes(current, proposed)
	assert.Len(t, diff, 1)
	assert.Equal(t, model.DiffTypeAdd, diff[0].Type)
	assert.Equal(t, 4, diff[0].BkInstID)
}

// TestDiffTargetNodesStaticHosts 静态主机按 bk_host_id 或 ip+云区域判等
func TestDiffTargetNodesStaticHosts(t *testing.T) {
	current := []model.TargetNode{
		{IP: "10.0.0.1", BkCloudID: 0},
		{BkHostID: 7},
	}
	proposed := []model.TargetNode{
		{IP: "10.0.0.1", BkCloudID: 2}, // 同IP不同云区域是不同节点
		{BkHostID: 7},
	}

	diff := DiffTargetNodes(current, proposed)
	assert.Len(t, diff, 2)
}
