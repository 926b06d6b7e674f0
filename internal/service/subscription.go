package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// ReconcileResult 一次订阅调和的三方结果
type ReconcileResult struct {
	Created []int `json:"created"`
	Updated []int `json:"updated"`
	Deleted []int `json:"deleted"`
	Errors  []error
}

// SubscriptionService 订阅生命周期控制器
// 以 (collector_config_id, bk_biz_id) 为粒度调和本地绑定与节点管理订阅
type SubscriptionService struct {
	db         *gorm.DB
	nodeMan    remote.NodeManClient
	concurrent int
}

// NewSubscriptionService 创建订阅生命周期控制器
func NewSubscriptionService(db *gorm.DB, nodeMan remote.NodeManClient, concurrent int) *SubscriptionService {
	if concurrent <= 0 {
		concurrent = 10
	}
	return &SubscriptionService{db: db, nodeMan: nodeMan, concurrent: concurrent}
}

// ListBindings 查询采集项名下全部有效绑定
func (s *SubscriptionService) ListBindings(collectorConfigID int) ([]model.SubscriptionBinding, error) {
	var bindings []model.SubscriptionBinding
	if err := s.db.Where("collector_config_id = ?", collectorConfigID).Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("list subscription bindings: %w", err)
	}
	return bindings, nil
}

// CreateOrUpdateSubscriptions 三方调和：
// 本地参数 ∩ 远端绑定 → 更新；本地独有 → 创建；远端独有 → 删除。
// 各业务并行执行，单业务内严格串行；单业务失败不阻断其余业务。
func (s *SubscriptionService) CreateOrUpdateSubscriptions(
	ctx context.Context,
	collector *model.CollectorConfig,
	params []*remote.SubscriptionParams,
) *ReconcileResult {
	result := &ReconcileResult{}

	bindings, err := s.ListBindings(collector.CollectorConfigID)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}
	existing := make(map[int]model.SubscriptionBinding, len(bindings))
	for _, b := range bindings {
		existing[b.BkBizID] = b
	}

	type job struct {
		bizID   int
		params  *remote.SubscriptionParams
		binding *model.SubscriptionBinding
		kind    string
	}
	var jobs []job
	matched := make(map[int]bool)
	for _, p := range params {
		if b, ok := existing[p.Scope.BkBizID]; ok {
			matched[p.Scope.BkBizID] = true
			binding := b
			jobs = append(jobs, job{bizID: p.Scope.BkBizID, params: p, binding: &binding, kind: "update"})
		} else {
			jobs = append(jobs, job{bizID: p.Scope.BkBizID, params: p, kind: "create"})
		}
	}
	for bizID, b := range existing {
		if !matched[bizID] {
			binding := b
			jobs = append(jobs, job{bizID: bizID, binding: &binding, kind: "delete"})
		}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrent)
	)
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			var err error
			switch j.kind {
			case "update":
				err = s.updateBinding(ctx, j.binding, j.params)
			case "create":
				err = s.createBinding(ctx, collector, j.params)
			case "delete":
				err = s.deleteBinding(ctx, j.binding)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, errcode.ErrCreateOrUpdateSubscription(
					fmt.Errorf("bk_biz_id=%d %s: %w", j.bizID, j.kind, err)))
				return
			}
			switch j.kind {
			case "update":
				result.Updated = append(result.Updated, j.bizID)
			case "create":
				result.Created = append(result.Created, j.bizID)
			case "delete":
				result.Deleted = append(result.Deleted, j.bizID)
			}
		}(j)
	}
	wg.Wait()
	return result
}

// updateBinding 使用既有 subscription_id 更新订阅并立即执行
func (s *SubscriptionService) updateBinding(
	ctx context.Context, binding *model.SubscriptionBinding, params *remote.SubscriptionParams,
) error {
	params.SubscriptionID = binding.SubscriptionID
	params.RunImmediately = true
	if _, err := s.nodeMan.UpdateSubscription(ctx, params); err != nil {
		return err
	}
	// 绑定本身不变，touch 更新时间即可
	if err := s.db.Model(binding).Update("subscription_id", binding.SubscriptionID).Error; err != nil {
		logger.Errorf("touch subscription binding %d failed: %v", binding.ID, err)
	}
	return nil
}

// createBinding 创建订阅、落库绑定、打开监听并触发首次安装
func (s *SubscriptionService) createBinding(
	ctx context.Context, collector *model.CollectorConfig, params *remote.SubscriptionParams,
) error {
	created, err := s.nodeMan.CreateSubscription(ctx, params)
	if err != nil {
		return err
	}
	binding := model.SubscriptionBinding{
		CollectorConfigID: collector.CollectorConfigID,
		BkBizID:           params.Scope.BkBizID,
		SubscriptionID:    created.SubscriptionID,
	}
	if err := s.db.Create(&binding).Error; err != nil {
		return fmt.Errorf("persist binding for bk_biz_id=%d: %w", params.Scope.BkBizID, err)
	}

	if err := s.nodeMan.SwitchSubscription(ctx, remote.SwitchSubscriptionParams{
		SubscriptionID: created.SubscriptionID,
		Action:         "enable",
		BkBizID:        params.Scope.BkBizID,
	}); err != nil {
		return err
	}

	// run_task 默认为 true，关闭后仅建立订阅不触发安装
	if collector.Params.RunTask != nil && !*collector.Params.RunTask {
		return nil
	}
	_, err = s.nodeMan.RunSubscriptionTask(ctx, remote.RunSubscriptionTaskParams{
		SubscriptionID: created.SubscriptionID,
		BkBizID:        params.Scope.BkBizID,
	})
	return err
}

// deleteBinding 下线流程：关监听、停采集、删订阅，最后删除绑定行释放唯一键
func (s *SubscriptionService) deleteBinding(ctx context.Context, binding *model.SubscriptionBinding) error {
	if err := s.nodeMan.SwitchSubscription(ctx, remote.SwitchSubscriptionParams{
		SubscriptionID: binding.SubscriptionID,
		Action:         "disable",
		BkBizID:        binding.BkBizID,
	}); err != nil {
		return err
	}
	if _, err := s.nodeMan.RunSubscriptionTask(ctx, remote.RunSubscriptionTaskParams{
		SubscriptionID: binding.SubscriptionID,
		BkBizID:        binding.BkBizID,
		Actions:        map[string]string{"plugin": model.ActionStop},
	}); err != nil {
		return err
	}
	if err := s.nodeMan.DeleteSubscription(ctx, remote.DeleteSubscriptionParams{
		SubscriptionID: binding.SubscriptionID,
		BkBizID:        binding.BkBizID,
	}); err != nil {
		return err
	}
	if err := s.db.Delete(binding).Error; err != nil {
		return fmt.Errorf("delete binding %d: %w", binding.ID, err)
	}
	return nil
}

// SwitchAll 批量启停采集项名下全部订阅监听
func (s *SubscriptionService) SwitchAll(ctx context.Context, collectorConfigID int, action string) error {
	bindings, err := s.ListBindings(collectorConfigID)
	if err != nil {
		return err
	}
	var errs []error
	s.forEachBinding(bindings, func(b model.SubscriptionBinding) error {
		return s.nodeMan.SwitchSubscription(ctx, remote.SwitchSubscriptionParams{
			SubscriptionID: b.SubscriptionID,
			Action:         action,
			BkBizID:        b.BkBizID,
		})
	}, &errs)
	return firstError(errs)
}

// RunAction 触发订阅任务。全量执行时用返回的任务ID替换 task_id_list；
// 指定范围的执行（局部重试）不改写任务ID
func (s *SubscriptionService) RunAction(
	ctx context.Context, collector *model.CollectorConfig, action string, scope *remote.RunScope,
) error {
	bindings, err := s.ListBindings(collector.CollectorConfigID)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		taskIDs []string
		errs    []error
	)
	s.forEachBinding(bindings, func(b model.SubscriptionBinding) error {
		if scope != nil && scope.BkBizID != b.BkBizID {
			return nil
		}
		result, err := s.nodeMan.RunSubscriptionTask(ctx, remote.RunSubscriptionTaskParams{
			SubscriptionID: b.SubscriptionID,
			BkBizID:        b.BkBizID,
			Actions:        map[string]string{"plugin": action},
			Scope:          scope,
		})
		if err != nil {
			return err
		}
		mu.Lock()
		taskIDs = append(taskIDs, strconv.Itoa(result.TaskID))
		mu.Unlock()
		return nil
	}, &errs)

	if scope == nil && len(taskIDs) > 0 {
		collector.TaskIDList = taskIDs
		if err := s.db.Model(collector).Update("task_id_list", collector.TaskIDList).Error; err != nil {
			logger.Errorf("update task_id_list of collector %d failed: %v", collector.CollectorConfigID, err)
		}
	}
	return firstError(errs)
}

// DeleteAll 删除采集项名下全部订阅，destroy 路径专用
func (s *SubscriptionService) DeleteAll(ctx context.Context, collectorConfigID int) error {
	bindings, err := s.ListBindings(collectorConfigID)
	if err != nil {
		return err
	}
	var errs []error
	s.forEachBinding(bindings, func(b model.SubscriptionBinding) error {
		binding := b
		return s.deleteBinding(ctx, &binding)
	}, &errs)
	return firstError(errs)
}

// RetryInstances 对拥有这些实例的单个订阅发起重试，任务ID追加进 task_id_list
// bkBizID 非零时直接指定业务，否则按实例归属定位绑定
func (s *SubscriptionService) RetryInstances(
	ctx context.Context, collector *model.CollectorConfig, instanceIDs []string, bkBizID int,
) error {
	bindings, err := s.ListBindings(collector.CollectorConfigID)
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return errcode.ErrSubscriptionInfoNotFound()
	}

	binding, err := s.resolveOwningBinding(ctx, bindings, instanceIDs, bkBizID)
	if err != nil {
		return err
	}

	result, err := s.nodeMan.RetrySubscription(ctx, remote.RetrySubscriptionParams{
		SubscriptionID: binding.SubscriptionID,
		InstanceIDList: instanceIDs,
		BkBizID:        binding.BkBizID,
	})
	if err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}
	collector.TaskIDList = append(collector.TaskIDList, strconv.Itoa(result.TaskID))
	if err := s.db.Model(collector).Update("task_id_list", collector.TaskIDList).Error; err != nil {
		return fmt.Errorf("append task_id_list of collector %d: %w", collector.CollectorConfigID, err)
	}
	return nil
}

// resolveOwningBinding 定位实例所属的绑定：
// 指定业务直取；唯一绑定直用；多绑定逐个查任务状态匹配实例ID
func (s *SubscriptionService) resolveOwningBinding(
	ctx context.Context, bindings []model.SubscriptionBinding, instanceIDs []string, bkBizID int,
) (*model.SubscriptionBinding, error) {
	if bkBizID != 0 {
		for i := range bindings {
			if bindings[i].BkBizID == bkBizID {
				return &bindings[i], nil
			}
		}
		return nil, errcode.ErrSubscriptionInfoNotFound()
	}
	if len(bindings) == 1 {
		return &bindings[0], nil
	}

	wanted := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		wanted[id] = true
	}
	for i := range bindings {
		status, err := s.nodeMan.GetSubscriptionTaskStatus(ctx, remote.TaskStatusParams{
			SubscriptionID: bindings[i].SubscriptionID,
			Page:           1,
			PageSize:       500,
		})
		if err != nil {
			logger.Warnf("lookup instances of subscription %d failed: %v", bindings[i].SubscriptionID, err)
			continue
		}
		for _, item := range status.List {
			if wanted[item.InstanceID] {
				return &bindings[i], nil
			}
		}
	}
	return nil, errcode.ErrSubscriptionInfoNotFound()
}

// forEachBinding 有界并发遍历绑定，错误聚合不中断
func (s *SubscriptionService) forEachBinding(
	bindings []model.SubscriptionBinding, fn func(model.SubscriptionBinding) error, errs *[]error,
) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrent)
	)
	for _, b := range bindings {
		wg.Add(1)
		sem <- struct{}{}
		go func(b model.SubscriptionBinding) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(b); err != nil {
				mu.Lock()
				*errs = append(*errs, fmt.Errorf("subscription %d: %w", b.SubscriptionID, err))
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()
}

func firstError(errs []error) error {
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
