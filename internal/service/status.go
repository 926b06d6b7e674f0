package service

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// CollectorStatus 单个采集项的状态汇总
type CollectorStatus struct {
	CollectorConfigID int    `json:"collector_config_id"`
	SubscriptionIDs   []int  `json:"subscription_ids"`
	Status            string `json:"status"`
	StatusName        string `json:"status_name"`
	Total             int    `json:"total"`
	Success           int    `json:"success"`
	Failed            int    `json:"failed"`
	Pending           int    `json:"pending"`
}

// StatusService 订阅状态聚合器
type StatusService struct {
	db           *gorm.DB
	nodeMan      remote.NodeManClient
	subscription *SubscriptionService
	cfg          config.SubscriptionConfig
}

// NewStatusService 创建状态聚合器
func NewStatusService(db *gorm.DB, nodeMan remote.NodeManClient, subscription *SubscriptionService, cfg config.SubscriptionConfig) *StatusService {
	return &StatusService{db: db, nodeMan: nodeMan, subscription: subscription, cfg: cfg}
}

// GetStatusByCollectorIDs 批量查询采集项状态
// 无订阅的采集项返回合成记录；统计接口缺失的订阅视为失败；
// 停用采集项的非部署中状态一律归为已停用
func (s *StatusService) GetStatusByCollectorIDs(ctx context.Context, ids []int) ([]CollectorStatus, error) {
	var collectors []model.CollectorConfig
	if err := s.db.Where("collector_config_id IN ?", ids).Find(&collectors).Error; err != nil {
		return nil, fmt.Errorf("load collectors: %w", err)
	}

	statuses := make([]CollectorStatus, 0, len(collectors))
	type pending struct {
		collector       *model.CollectorConfig
		subscriptionIDs []int
	}
	var pendings []pending
	var allSubscriptionIDs []int

	for i := range collectors {
		collector := &collectors[i]

		if collector.IsContainerEnvironment {
			statuses = append(statuses, s.containerStatus(collector))
			continue
		}

		bindings, err := s.subscription.ListBindings(collector.CollectorConfigID)
		if err != nil {
			return nil, err
		}
		if len(bindings) == 0 {
			statuses = append(statuses, s.syntheticStatus(collector))
			continue
		}
		var subIDs []int
		for _, b := range bindings {
			subIDs = append(subIDs, b.SubscriptionID)
		}
		allSubscriptionIDs = append(allSubscriptionIDs, subIDs...)
		pendings = append(pendings, pending{collector: collector, subscriptionIDs: subIDs})
	}

	statistics, err := s.fetchStatistics(ctx, allSubscriptionIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range pendings {
		status := s.rollup(p.collector, p.subscriptionIDs, statistics)
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// fetchStatistics 按订阅ID有界并行拉取统计
func (s *StatusService) fetchStatistics(ctx context.Context, subscriptionIDs []int) (map[int]remote.SubscriptionStatistic, error) {
	result := make(map[int]remote.SubscriptionStatistic, len(subscriptionIDs))
	if len(subscriptionIDs) == 0 {
		return result, nil
	}

	concurrent := s.cfg.Concurrent
	if concurrent <= 0 {
		concurrent = 10
	}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, concurrent)
		firstErr error
	)
	for _, subID := range subscriptionIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(subID int) {
			defer wg.Done()
			defer func() { <-sem }()
			stats, err := s.nodeMan.SubscriptionStatistic(ctx, remote.SubscriptionStatisticParams{
				SubscriptionIDList: []int{subID},
				PluginName:         s.cfg.PluginName,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = errcode.ErrSubscriptionStatistic(subID, err)
				}
				return
			}
			for _, stat := range stats {
				result[stat.SubscriptionID] = stat
			}
		}(subID)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// syntheticStatus 无订阅采集项的合成记录：有目标则为准备中，否则成功
func (s *StatusService) syntheticStatus(collector *model.CollectorConfig) CollectorStatus {
	status := model.CollectStatusSuccess
	if len(collector.TargetNodes) > 0 {
		status = model.CollectStatusPrepare
	}
	result := CollectorStatus{
		CollectorConfigID: collector.CollectorConfigID,
		Status:            status,
		StatusName:        model.StatusName(status),
	}
	return coerceTerminated(collector, result)
}

// rollup 将采集项名下各订阅的统计合并为一条状态记录
func (s *StatusService) rollup(
	collector *model.CollectorConfig, subscriptionIDs []int, statistics map[int]remote.SubscriptionStatistic,
) CollectorStatus {
	result := CollectorStatus{
		CollectorConfigID: collector.CollectorConfigID,
		SubscriptionIDs:   subscriptionIDs,
	}
	present := make(map[string]bool)
	for _, subID := range subscriptionIDs {
		stat, ok := statistics[subID]
		if !ok {
			// 统计缺失按失败处理，计数为零
			logger.Warnf("subscription %d missing from statistic response", subID)
			present[model.CollectStatusFailed] = true
			continue
		}
		result.Total += stat.Instances
		for _, sc := range stat.Status {
			if sc.Count == 0 {
				continue
			}
			present[sc.Status] = true
			switch sc.Status {
			case model.CollectStatusPending, model.CollectStatusRunning:
				result.Pending += sc.Count
			case model.CollectStatusFailed:
				result.Failed += sc.Count
			case model.CollectStatusSuccess:
				result.Success += sc.Count
			}
		}
	}

	result.Status, result.StatusName = applyStateLattice(present)
	return coerceTerminated(collector, result)
}

// applyStateLattice 状态格：部署中 > 失败 > 已停用 > 成功 > 未知
func applyStateLattice(present map[string]bool) (string, string) {
	switch {
	case len(present) == 0:
		return model.CollectStatusUnknown, model.RunStatusUnknown
	case present[model.CollectStatusPending] || present[model.CollectStatusRunning]:
		return model.CollectStatusRunning, model.RunStatusRunning
	case present[model.CollectStatusFailed] && present[model.CollectStatusSuccess]:
		return model.CollectStatusFailed, model.RunStatusPartFailed
	case present[model.CollectStatusFailed]:
		return model.CollectStatusFailed, model.RunStatusFailed
	case present[model.CollectStatusTerminated] && !present[model.CollectStatusSuccess]:
		return model.CollectStatusTerminated, model.RunStatusTerminated
	default:
		return model.CollectStatusSuccess, model.RunStatusSuccess
	}
}

// coerceTerminated 停用采集项的非部署中状态归为已停用
func coerceTerminated(collector *model.CollectorConfig, status CollectorStatus) CollectorStatus {
	if !collector.IsActive && status.Status != model.CollectStatusRunning {
		status.Status = model.CollectStatusTerminated
		status.StatusName = model.RunStatusTerminated
	}
	return status
}

// containerStatus 容器采集项按子配置状态聚合
func (s *StatusService) containerStatus(collector *model.CollectorConfig) CollectorStatus {
	var children []model.ContainerCollectorConfig
	if err := s.db.Where("collector_config_id = ?", collector.CollectorConfigID).Find(&children).Error; err != nil {
		logger.Errorf("load container collector configs of %d failed: %v", collector.CollectorConfigID, err)
	}

	result := CollectorStatus{CollectorConfigID: collector.CollectorConfigID}
	present := make(map[string]bool)
	for _, child := range children {
		present[child.Status] = true
		result.Total++
		switch child.Status {
		case model.ContainerCollectStatusPending, model.ContainerCollectStatusRunning:
			result.Pending++
		case model.ContainerCollectStatusFailed:
			result.Failed++
		case model.ContainerCollectStatusSuccess:
			result.Success++
		}
	}
	result.Status, result.StatusName = applyStateLattice(present)
	return coerceTerminated(collector, result)
}
