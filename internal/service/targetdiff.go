package service

import (
	"fmt"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
)

// nodeKey 节点引用的等值键；动态节点按 (bk_inst_id, bk_obj_id)，
// 静态主机按 (ip, bk_cloud_id) 或 bk_host_id
func nodeKey(n model.TargetNode) (string, bool) {
	switch {
	case n.BkInstID != 0 || n.BkObjID != "":
		return fmt.Sprintf("inst:%d|%s", n.BkInstID, n.BkObjID), true
	case n.BkHostID != 0:
		return fmt.Sprintf("host:%d", n.BkHostID), true
	case n.IP != "":
		return fmt.Sprintf("ip:%s|%d", n.IP, n.BkCloudID), true
	default:
		// 两类键都缺失的节点跳过
		return "", false
	}
}

// DiffTargetNodes 计算目标节点增删差异，结果无序
func DiffTargetNodes(current, proposed []model.TargetNode) []model.DiffNode {
	currentSet := make(map[string]model.TargetNode, len(current))
	for _, n := range current {
		if key, ok := nodeKey(n); ok {
			currentSet[key] = n
		}
	}
	proposedSet := make(map[string]model.TargetNode, len(proposed))
	for _, n := range proposed {
		if key, ok := nodeKey(n); ok {
			proposedSet[key] = n
		}
	}

	var diff []model.DiffNode
	for key, n := range proposedSet {
		if _, ok := currentSet[key]; !ok {
			diff = append(diff, model.DiffNode{Type: model.DiffTypeAdd, BkInstID: n.BkInstID, BkObjID: n.BkObjID})
		}
	}
	for key, n := range currentSet {
		if _, ok := proposedSet[key]; !ok {
			diff = append(diff, model.DiffNode{Type: model.DiffTypeDelete, BkInstID: n.BkInstID, BkObjID: n.BkObjID})
		}
	}
	return diff
}
