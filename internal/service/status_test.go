package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
)

func newTestStatusService(t *testing.T) (*StatusService, *fakeNodeMan, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	nodeMan := newFakeNodeMan()
	subscription := NewSubscriptionService(db, nodeMan, 10)
	return NewStatusService(db, nodeMan, subscription, testSubscriptionConfig()), nodeMan, db
}

func createCollectorWithBinding(t *testing.T, db *gorm.DB, subscriptionID int, active bool) *model.CollectorConfig {
	t.Helper()
	collector := &model.CollectorConfig{
		BkBizID:               2,
		CollectorConfigName:   "Web日志",
		CollectorConfigNameEn: "weblogs",
		IsActive:              active,
		TargetNodes:           []model.TargetNode{{BkInstID: 4, BkObjID: "module"}},
	}
	require.NoError(t, db.Create(collector).Error)
	require.NoError(t, db.Create(&model.SubscriptionBinding{
		CollectorConfigID: collector.CollectorConfigID,
		BkBizID:           2,
		SubscriptionID:    subscriptionID,
	}).Error)
	return collector
}

// TestStateLattice 状态格优先级：部署中 > 失败 > 已停用 > 成功 > 未知
func TestStateLattice(t *testing.T) {
	cases := []struct {
		name       string
		present    []string
		status     string
		statusName string
	}{
		{"空集为未知", nil, model.CollectStatusUnknown, model.RunStatusUnknown},
		{"含等待即部署中", []string{model.CollectStatusPending, model.CollectStatusFailed}, model.CollectStatusRunning, model.RunStatusRunning},
		{"含执行中即部署中", []string{model.CollectStatusRunning, model.CollectStatusSuccess}, model.CollectStatusRunning, model.RunStatusRunning},
		{"失败与成功并存为部分失败", []string{model.CollectStatusFailed, model.CollectStatusSuccess}, model.CollectStatusFailed, model.RunStatusPartFailed},
		{"仅失败为失败", []string{model.CollectStatusFailed}, model.CollectStatusFailed, model.RunStatusFailed},
		{"仅停用为已停用", []string{model.CollectStatusTerminated}, model.CollectStatusTerminated, model.RunStatusTerminated},
		{"停用与成功并存为成功", []string{model.CollectStatusTerminated, model.CollectStatusSuccess}, model.CollectStatusSuccess, model.RunStatusSuccess},
		{"全部成功为成功", []string{model.CollectStatusSuccess}, model.CollectStatusSuccess, model.RunStatusSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			present := make(map[string]bool)
			for _, s := range tc.present {
				present[s] = true
			}
			status, statusName := applyStateLattice(present)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.statusName, statusName)
		})
	}
}

// TestStatusRollup 统计计数聚合：等待与执行中都计入 pending
func TestStatusRollup(t *testing.T) {
	svc, nodeMan, db := newTestStatusService(t)
	collector := createCollectorWithBinding(t, db, 101, true)

	nodeMan.statistics[101] = remote.SubscriptionStatistic{
		SubscriptionID: 101,
		Instances:      10,
		Status: []remote.StatusCount{
			{Status: model.CollectStatusPending, Count: 2},
			{Status: model.CollectStatusSuccess, Count: 8},
		},
	}

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	status := statuses[0]
	assert.Equal(t, model.CollectStatusRunning, status.Status)
	assert.Equal(t, 10, status.Total)
	assert.Equal(t, 2, status.Pending)
	assert.Equal(t, 8, status.Success)
	assert.Equal(t, 0, status.Failed)
}

// TestStatusSynthetic 无订阅采集项：有目标为准备中，无目标为成功
func TestStatusSynthetic(t *testing.T) {
	svc, _, db := newTestStatusService(t)

	withTargets := &model.CollectorConfig{
		BkBizID: 2, CollectorConfigName: "a", CollectorConfigNameEn: "a", IsActive: true,
		TargetNodes: []model.TargetNode{{BkInstID: 4, BkObjID: "module"}},
	}
	require.NoError(t, db.Create(withTargets).Error)
	noTargets := &model.CollectorConfig{
		BkBizID: 2, CollectorConfigName: "b", CollectorConfigNameEn: "b", IsActive: true,
	}
	require.NoError(t, db.Create(noTargets).Error)

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(),
		[]int{withTargets.CollectorConfigID, noTargets.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byID := make(map[int]CollectorStatus)
	for _, s := range statuses {
		byID[s.CollectorConfigID] = s
	}
	assert.Equal(t, model.CollectStatusPrepare, byID[withTargets.CollectorConfigID].Status)
	assert.Equal(t, model.CollectStatusSuccess, byID[noTargets.CollectorConfigID].Status)
	assert.Zero(t, byID[withTargets.CollectorConfigID].Total)
}

// TestStatusMissingStatistic 统计缺失的订阅按失败处理
func TestStatusMissingStatistic(t *testing.T) {
	svc, _, db := newTestStatusService(t)
	collector := createCollectorWithBinding(t, db, 101, true)

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, model.CollectStatusFailed, statuses[0].Status)
	assert.Zero(t, statuses[0].Total)
}

// TestStatusTerminatedCoercion 停用采集项的非部署中状态归为已停用
func TestStatusTerminatedCoercion(t *testing.T) {
	svc, nodeMan, db := newTestStatusService(t)
	collector := createCollectorWithBinding(t, db, 101, false)

	nodeMan.statistics[101] = remote.SubscriptionStatistic{
		SubscriptionID: 101,
		Instances:      5,
		Status:         []remote.StatusCount{{Status: model.CollectStatusSuccess, Count: 5}},
	}

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, model.CollectStatusTerminated, statuses[0].Status)
	assert.Equal(t, model.RunStatusTerminated, statuses[0].StatusName)
}

// TestStatusRunningNotCoerced 部署中状态不受停用标记影响
func TestStatusRunningNotCoerced(t *testing.T) {
	svc, nodeMan, db := newTestStatusService(t)
	collector := createCollectorWithBinding(t, db, 101, false)

	nodeMan.statistics[101] = remote.SubscriptionStatistic{
		SubscriptionID: 101,
		Instances:      2,
		Status:         []remote.StatusCount{{Status: model.CollectStatusRunning, Count: 2}},
	}

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	assert.Equal(t, model.CollectStatusRunning, statuses[0].Status)
}

// TestStatusMultiSubscription 跨业务多订阅合并为一条记录
func TestStatusMultiSubscription(t *testing.T) {
	svc, nodeMan, db := newTestStatusService(t)
	collector := createCollectorWithBinding(t, db, 101, true)
	require.NoError(t, db.Create(&model.SubscriptionBinding{
		CollectorConfigID: collector.CollectorConfigID,
		BkBizID:           20,
		SubscriptionID:    102,
	}).Error)

	nodeMan.statistics[101] = remote.SubscriptionStatistic{
		SubscriptionID: 101, Instances: 3,
		Status: []remote.StatusCount{{Status: model.CollectStatusSuccess, Count: 3}},
	}
	nodeMan.statistics[102] = remote.SubscriptionStatistic{
		SubscriptionID: 102, Instances: 2,
		Status: []remote.StatusCount{{Status: model.CollectStatusFailed, Count: 2}},
	}

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	status := statuses[0]
	assert.Equal(t, model.CollectStatusFailed, status.Status)
	assert.Equal(t, model.RunStatusPartFailed, status.StatusName)
	assert.Equal(t, 5, status.Total)
	assert.Equal(t, 3, status.Success)
	assert.Equal(t, 2, status.Failed)
}

// TestStatusContainerCollector 容器采集项按子配置聚合
func TestStatusContainerCollector(t *testing.T) {
	svc, _, db := newTestStatusService(t)
	collector := &model.CollectorConfig{
		BkBizID: 2, CollectorConfigName: "c", CollectorConfigNameEn: "c",
		IsActive: true, IsContainerEnvironment: true,
	}
	require.NoError(t, db.Create(collector).Error)
	for _, status := range []string{model.ContainerCollectStatusSuccess, model.ContainerCollectStatusFailed} {
		require.NoError(t, db.Create(&model.ContainerCollectorConfig{
			CollectorConfigID: collector.CollectorConfigID,
			Status:            status,
		}).Error)
	}

	statuses, err := svc.GetStatusByCollectorIDs(context.Background(), []int{collector.CollectorConfigID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, model.CollectStatusFailed, statuses[0].Status)
	assert.Equal(t, model.RunStatusPartFailed, statuses[0].StatusName)
	assert.Equal(t, 2, statuses[0].Total)
}
