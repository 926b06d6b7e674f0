package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
)

// InstanceStatus 单实例的部署状态展示记录
type InstanceStatus struct {
	HostID       int    `json:"host_id"`
	IP           string `json:"ip"`
	IPv6         string `json:"ipv6"`
	HostName     string `json:"host_name"`
	CloudID      int    `json:"cloud_id"`
	Status       string `json:"status"`
	StatusName   string `json:"status_name"`
	Log          string `json:"log"`
	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`
	TaskID       int    `json:"task_id"`
	Steps        map[string]string `json:"steps"`
	CreatedAt    string `json:"created_at"`
}

// InstanceStatusService 实例状态格式化
type InstanceStatusService struct {
	nodeMan      remote.NodeManClient
	subscription *SubscriptionService
}

// NewInstanceStatusService 创建实例状态服务
func NewInstanceStatusService(nodeMan remote.NodeManClient, subscription *SubscriptionService) *InstanceStatusService {
	return &InstanceStatusService{nodeMan: nodeMan, subscription: subscription}
}

// GetTaskStatus 拉取采集项名下全部订阅的实例状态并格式化
func (s *InstanceStatusService) GetTaskStatus(ctx context.Context, collector *model.CollectorConfig) ([]InstanceStatus, error) {
	bindings, err := s.subscription.ListBindings(collector.CollectorConfigID)
	if err != nil {
		return nil, err
	}

	var raw []remote.TaskInstanceStatus
	for _, b := range bindings {
		result, err := s.nodeMan.GetSubscriptionTaskStatus(ctx, remote.TaskStatusParams{
			SubscriptionID: b.SubscriptionID,
			NeedDetail:     true,
			Page:           1,
			PageSize:       500,
		})
		if err != nil {
			// 节点管理"无订阅"错误等同空列表
			if apiErr, ok := err.(*remote.APIError); ok && apiErr.Code == model.NodeManNotFoundCode {
				continue
			}
			return nil, fmt.Errorf("get task status of subscription %d: %w", b.SubscriptionID, err)
		}
		raw = append(raw, result.List...)
	}
	raw = filterRemovedTargets(collector, raw)
	return FormatInstanceStatuses(collector, raw), nil
}

// filterRemovedTargets 目标差异中存在删除节点时，已移出静态目标的实例
// 只保留卸载动作，避免残留安装记录干扰展示
func filterRemovedTargets(collector *model.CollectorConfig, raw []remote.TaskInstanceStatus) []remote.TaskInstanceStatus {
	if collector.TargetNodeType != model.TargetNodeTypeInstance || !hasDeleteDiff(collector.TargetSubscriptionDiff) {
		return raw
	}
	var kept, removed []remote.TaskInstanceStatus
	for _, item := range raw {
		if hostInTargets(collector, item.InstanceInfo.Host) {
			kept = append(kept, item)
		} else {
			removed = append(removed, item)
		}
	}
	return append(kept, FilterDeleteNodeInstances(removed)...)
}

func hasDeleteDiff(diff []model.DiffNode) bool {
	for _, node := range diff {
		if node.Type == model.DiffTypeDelete {
			return true
		}
	}
	return false
}

// FormatInstanceStatuses 将原始实例状态转为展示记录
// 静态目标场景下，不属于当前目标且任务ID落后的历史IP会被剔除
func FormatInstanceStatuses(collector *model.CollectorConfig, raw []remote.TaskInstanceStatus) []InstanceStatus {
	latestTaskID := collector.LatestTaskID()

	instances := make([]InstanceStatus, 0, len(raw))
	for _, item := range raw {
		if isHistoricalInstance(collector, item, latestTaskID) {
			continue
		}
		instances = append(instances, formatInstance(item))
	}
	return instances
}

// isHistoricalInstance 历史IP剔除规则：
// 静态目标 + 任务ID非最新 + (ip,cloud_id) 与 bk_host_id 均不在当前目标内
func isHistoricalInstance(collector *model.CollectorConfig, item remote.TaskInstanceStatus, latestTaskID string) bool {
	if collector.TargetNodeType != model.TargetNodeTypeInstance {
		return false
	}
	if latestTaskID == "" || strconv.Itoa(item.TaskID) == latestTaskID {
		return false
	}
	return !hostInTargets(collector, item.InstanceInfo.Host)
}

// hostInTargets 主机是否仍在当前静态目标内
func hostInTargets(collector *model.CollectorConfig, host remote.HostInfo) bool {
	for _, node := range collector.TargetNodes {
		if node.BkHostID != 0 && node.BkHostID == host.BkHostID {
			return true
		}
		if node.IP != "" && node.IP == host.BkHostInnerIP && node.BkCloudID == int(host.BkCloudID) {
			return true
		}
	}
	return false
}

func formatInstance(item remote.TaskInstanceStatus) InstanceStatus {
	host := item.InstanceInfo.Host

	instanceName := host.BkHostInnerIP
	if instanceName == "" {
		instanceName = host.BkHostName
	}

	steps := make(map[string]string, len(item.Steps))
	for _, step := range item.Steps {
		steps[step.NodeName] = step.Status
	}

	return InstanceStatus{
		HostID:       host.BkHostID,
		IP:           host.BkHostInnerIP,
		IPv6:         host.BkHostInnerIPv6,
		HostName:     host.BkHostName,
		CloudID:      int(host.BkCloudID),
		Status:       item.Status,
		StatusName:   model.StatusName(item.Status),
		Log:          firstFailingLog(item.Steps),
		InstanceID:   item.InstanceID,
		InstanceName: instanceName,
		TaskID:       item.TaskID,
		Steps:        steps,
		CreatedAt:    item.CreateTime,
	}
}

// firstFailingLog 深度优先找到第一个非成功子步骤，拼为 "步骤-子步骤"
func firstFailingLog(steps []remote.InstanceStep) string {
	for _, step := range steps {
		for _, host := range step.TargetHosts {
			for _, sub := range host.SubSteps {
				if sub.Status != model.CollectStatusSuccess {
					return fmt.Sprintf("%s-%s", step.NodeName, sub.NodeName)
				}
			}
		}
	}
	return ""
}

// FilterDeleteNodeInstances 删除差异节点下只保留卸载动作的实例
func FilterDeleteNodeInstances(raw []remote.TaskInstanceStatus) []remote.TaskInstanceStatus {
	filtered := make([]remote.TaskInstanceStatus, 0, len(raw))
	for _, item := range raw {
		for _, step := range item.Steps {
			if step.Action == model.ActionUninstall {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}
