package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// CollectorUpsertInput 创建/更新采集项入参
type CollectorUpsertInput struct {
	CollectorConfigID     int                `json:"collector_config_id"`
	BkBizID               int                `json:"bk_biz_id"`
	BkdataBizID           int                `json:"bkdata_biz_id"`
	CollectorConfigName   string             `json:"collector_config_name"`
	CollectorConfigNameEn string             `json:"collector_config_name_en"`
	CollectorScenarioID   string             `json:"collector_scenario_id"`
	CustomType            string             `json:"custom_type"`
	CategoryID            string             `json:"category_id"`
	Description           string             `json:"description"`
	DataEncoding          string             `json:"data_encoding"`
	Environment           string             `json:"environment"`
	ETLProcessor          string             `json:"etl_processor"`
	ETLConfig             string             `json:"etl_config"`
	DataLinkID            int                `json:"data_link_id"`
	StorageClusterID      int                `json:"storage_cluster_id"`
	TargetObjectType      string             `json:"target_object_type"`
	TargetNodeType        string             `json:"target_node_type"`
	TargetNodes           []model.TargetNode `json:"target_nodes"`
	Params                model.Params       `json:"params"`
	IsAllowAloneDataID    *bool              `json:"is_allow_alone_data_id"`
	Operator              string             `json:"operator"`
}

// CollectorUpsertResult 创建/更新采集项返回
type CollectorUpsertResult struct {
	Collector *model.CollectorConfig `json:"collector"`
	Reconcile *ReconcileResult       `json:"reconcile"`
}

// CollectorService 采集项操作入口
// 同一采集项的编排操作通过键锁串行化，不同采集项互不影响
type CollectorService struct {
	db           *gorm.DB
	cfg          *config.Config
	naming       *NamingService
	params       *ParamsBuilder
	subscription *SubscriptionService
	transfer     remote.TransferClient
	cmdb         remote.CMDBClient
	bkdata       remote.BkDataClient
	itsm         remote.ITSMClient
	locks        *mapmutex.Mutex
}

// NewCollectorService 创建采集项操作服务
func NewCollectorService(
	db *gorm.DB,
	cfg *config.Config,
	naming *NamingService,
	params *ParamsBuilder,
	subscription *SubscriptionService,
	transfer remote.TransferClient,
	cmdb remote.CMDBClient,
	bkdata remote.BkDataClient,
	itsm remote.ITSMClient,
) *CollectorService {
	return &CollectorService{
		db:           db,
		cfg:          cfg,
		naming:       naming,
		params:       params,
		subscription: subscription,
		transfer:     transfer,
		cmdb:         cmdb,
		bkdata:       bkdata,
		itsm:         itsm,
		locks:        mapmutex.NewMapMutex(),
	}
}

// lockKey 创建阶段还没有主键，用业务+英文名兜底
func (s *CollectorService) lockKey(input *CollectorUpsertInput) string {
	if input.CollectorConfigID > 0 {
		return fmt.Sprintf("collector:%d", input.CollectorConfigID)
	}
	return fmt.Sprintf("collector:%d:%s", input.BkBizID, input.CollectorConfigNameEn)
}

// CreateOrUpdate 创建或更新采集项并调和订阅
// 本地事务先提交，远端编排失败由下一次调用收敛
func (s *CollectorService) CreateOrUpdate(ctx context.Context, input *CollectorUpsertInput) (*CollectorUpsertResult, error) {
	key := s.lockKey(input)
	if !s.locks.TryLock(key) {
		return nil, errcode.ErrCreateOrUpdateSubscription(errors.New("采集项正在编排中"))
	}
	defer s.locks.Unlock(key)

	collector, isCreate, err := s.persistCollector(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.ensureDataID(ctx, collector, input.IsAllowAloneDataID); err != nil {
		return nil, err
	}

	reconcile := s.reconcile(ctx, collector, nil)

	s.postHooks(collector, isCreate, input)
	return &CollectorUpsertResult{Collector: collector, Reconcile: reconcile}, nil
}

// persistCollector 校验并在单个事务内落库采集项
func (s *CollectorService) persistCollector(ctx context.Context, input *CollectorUpsertInput) (*model.CollectorConfig, bool, error) {
	var existing *model.CollectorConfig
	if input.CollectorConfigID > 0 {
		var record model.CollectorConfig
		if err := s.db.First(&record, input.CollectorConfigID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, errcode.ErrCollectorIdNotExist(input.CollectorConfigID)
			}
			return nil, false, fmt.Errorf("load collector %d: %w", input.CollectorConfigID, err)
		}
		if !record.IsActive {
			return nil, false, errcode.ErrCollectorInactive()
		}
		existing = &record
	}

	nameEnChanged := existing == nil || existing.CollectorConfigNameEn != input.CollectorConfigNameEn
	if nameEnChanged {
		if err := s.naming.Precheck(input.BkBizID, input.CollectorConfigNameEn, input.CollectorConfigID); err != nil {
			return nil, false, err
		}
	}
	if existing == nil || existing.CollectorConfigName != input.CollectorConfigName {
		if err := s.naming.PrecheckName(input.BkBizID, input.CollectorConfigName, input.CollectorConfigID); err != nil {
			return nil, false, err
		}
	}

	if err := s.checkIllegalTargets(ctx, input.BkBizID, input.TargetNodes); err != nil {
		return nil, false, err
	}

	names := s.naming.BuildNames(input.BkBizID, input.CollectorConfigNameEn)

	var collector *model.CollectorConfig
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			collector = &model.CollectorConfig{IsActive: true, IsDisplay: true}
		} else {
			collector = existing
		}

		var currentNodes []model.TargetNode
		oldDataName := ""
		oldName := ""
		if existing != nil {
			currentNodes = existing.TargetNodes
			oldDataName = existing.BkDataName
			oldName = existing.CollectorConfigName
		}

		collector.BkBizID = input.BkBizID
		collector.BkdataBizID = input.BkdataBizID
		collector.CollectorConfigName = input.CollectorConfigName
		collector.CollectorConfigNameEn = input.CollectorConfigNameEn
		collector.CollectorScenarioID = input.CollectorScenarioID
		if input.CustomType != "" {
			collector.CustomType = input.CustomType
		}
		collector.CategoryID = input.CategoryID
		collector.Description = input.Description
		collector.DataEncoding = input.DataEncoding
		collector.Environment = input.Environment
		collector.IsContainerEnvironment = input.Environment == model.EnvironmentContainer
		if input.ETLProcessor != "" {
			collector.ETLProcessor = input.ETLProcessor
		}
		collector.ETLConfig = input.ETLConfig
		collector.DataLinkID = s.resolveDataLinkID(input.BkBizID, input.DataLinkID)
		if input.StorageClusterID != 0 {
			collector.StorageClusterID = input.StorageClusterID
		}
		collector.TargetObjectType = input.TargetObjectType
		collector.TargetNodeType = input.TargetNodeType
		collector.TargetNodes = input.TargetNodes
		collector.Params = input.Params
		collector.BkDataName = names.BkDataName
		collector.TableID = names.ResultTableID
		collector.UpdatedBy = input.Operator
		if existing == nil {
			collector.CreatedBy = input.Operator
		}

		// ITSM 审批开启时差异挂起等待审批，不直接落库
		if !s.cfg.Feature.CollectorITSM {
			collector.TargetSubscriptionDiff = DiffTargetNodes(currentNodes, input.TargetNodes)
		}

		if err := tx.Save(collector).Error; err != nil {
			return fmt.Errorf("save collector: %w", err)
		}

		// 数据源名变化同步到元数据服务，失败回滚整个事务
		if existing != nil && collector.BkDataID != 0 && oldDataName != names.BkDataName {
			if err := s.transfer.ModifyDataID(ctx, remote.ModifyDataIDParams{
				DataID:   collector.BkDataID,
				DataName: names.BkDataName,
			}); err != nil {
				return errcode.ErrCreateOrUpdateSubscription(err)
			}
		}

		// 展示名变化联动索引集改名
		if existing != nil && oldName != input.CollectorConfigName && collector.IndexSetID != 0 {
			if err := tx.Model(&model.LogIndexSet{}).
				Where("index_set_id = ?", collector.IndexSetID).
				Update("index_set_name", input.CollectorConfigName).Error; err != nil {
				return fmt.Errorf("rename index set: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return collector, existing == nil, nil
}

// checkIllegalTargets 静态主机目标必须属于声明的业务
func (s *CollectorService) checkIllegalTargets(ctx context.Context, bkBizID int, nodes []model.TargetNode) error {
	var ips []string
	var hostIDs []int
	for _, node := range nodes {
		if node.BkInstID != 0 || node.BkObjID != "" {
			continue
		}
		if node.BkHostID != 0 {
			hostIDs = append(hostIDs, node.BkHostID)
		} else if node.IP != "" {
			ips = append(ips, node.IP)
		}
	}
	if len(ips) == 0 && len(hostIDs) == 0 {
		return nil
	}

	// 只查候选 ip/host_id，并分页拉全，避免大业务主机截断造成误判
	var rules []map[string]interface{}
	if len(ips) > 0 {
		rules = append(rules, map[string]interface{}{"field": "bk_host_innerip", "operator": "in", "value": ips})
	}
	if len(hostIDs) > 0 {
		rules = append(rules, map[string]interface{}{"field": "bk_host_id", "operator": "in", "value": hostIDs})
	}
	filter := map[string]interface{}{"condition": "OR", "rules": rules}

	const pageLimit = 500
	var hosts []remote.CMDBHost
	for start := 0; ; start += pageLimit {
		result, err := s.cmdb.ListBizHosts(ctx, remote.ListBizHostsParams{
			BkBizID:            bkBizID,
			Fields:             []string{"bk_host_id", "bk_host_innerip", "bk_cloud_id"},
			Page:               remote.CMDBPage{Start: start, Limit: pageLimit},
			HostPropertyFilter: filter,
		})
		if err != nil {
			return errcode.ErrCreateOrUpdateSubscription(fmt.Errorf("查询业务主机失败: %w", err))
		}
		hosts = append(hosts, result.Info...)
		if len(result.Info) < pageLimit || len(hosts) >= result.Count {
			break
		}
	}

	legalIPs := make(map[string]bool, len(hosts))
	legalHostIDs := make(map[int]bool, len(hosts))
	for _, host := range hosts {
		legalIPs[host.BkHostInnerIP] = true
		legalHostIDs[host.BkHostID] = true
	}

	var illegal []string
	for _, ip := range ips {
		if !legalIPs[ip] {
			illegal = append(illegal, ip)
		}
	}
	for _, hostID := range hostIDs {
		if !legalHostIDs[hostID] {
			illegal = append(illegal, fmt.Sprintf("host:%d", hostID))
		}
	}
	if len(illegal) > 0 {
		return errcode.ErrIllegalTarget(bkBizID, illegal)
	}
	return nil
}

// ensureDataID 确保采集项持有数据源ID
// bkbase 双处理器模式先在 transfer 侧取号，再作为预分配ID接入计算平台
func (s *CollectorService) ensureDataID(ctx context.Context, collector *model.CollectorConfig, allowAlone *bool) error {
	if allowAlone != nil && !*allowAlone {
		return nil
	}
	if collector.BkDataID != 0 {
		// bkbase 接入的名称与别名随采集项变化，部署计划同步改写
		if collector.ETLProcessor == model.ETLProcessorBKBase {
			if err := s.bkdata.DeployPlanPut(ctx, collector.BkDataID, s.deployPlanParams(collector, collector.BkDataID)); err != nil {
				return errcode.ErrCreateOrUpdateSubscription(fmt.Errorf("更新计算平台接入失败: %w", err))
			}
		}
		return nil
	}

	created, err := s.transfer.CreateDataID(ctx, remote.CreateDataIDParams{
		DataName:    collector.BkDataName,
		ETLConfig:   collector.ETLConfig,
		DataLinkID:  collector.DataLinkID,
		Description: collector.Description,
		Encoding:    collector.DataEncoding,
		TypeLabel:   "log",
		SourceLabel: "bk_monitor",
		Operator:    collector.UpdatedBy,
	})
	if err != nil {
		return errcode.ErrCreateOrUpdateSubscription(fmt.Errorf("注册数据源失败: %w", err))
	}
	dataID := created.BkDataID

	if collector.ETLProcessor == model.ETLProcessorBKBase {
		if _, err := s.bkdata.DeployPlanPost(ctx, s.deployPlanParams(collector, dataID)); err != nil {
			return errcode.ErrCreateOrUpdateSubscription(fmt.Errorf("接入计算平台失败: %w", err))
		}
	}

	collector.BkDataID = dataID
	if err := s.db.Model(collector).Update("bk_data_id", dataID).Error; err != nil {
		return fmt.Errorf("persist bk_data_id of collector %d: %w", collector.CollectorConfigID, err)
	}
	return nil
}

func (s *CollectorService) deployPlanParams(collector *model.CollectorConfig, dataID int) remote.DeployPlanParams {
	return remote.DeployPlanParams{
		BkBizID:           collector.GetBkdataBizID(),
		DataScenario:      "custom",
		PreassignedDataID: dataID,
		AccessRawData: map[string]interface{}{
			"raw_data_name":  collector.CollectorConfigNameEn,
			"raw_data_alias": collector.CollectorConfigName,
		},
	}
}

// reconcile 构造订阅参数并交给生命周期控制器调和
// onlyBizIDs 非空时仅保留既有业务的参数，fast_update 不建新绑定
func (s *CollectorService) reconcile(ctx context.Context, collector *model.CollectorConfig, onlyBizIDs map[int]bool) *ReconcileResult {
	params := s.params.BuildParams(collector)
	if onlyBizIDs != nil {
		var kept []*remote.SubscriptionParams
		for _, p := range params {
			if onlyBizIDs[p.Scope.BkBizID] {
				kept = append(kept, p)
			}
		}
		params = kept
	}
	result := s.subscription.CreateOrUpdateSubscriptions(ctx, collector, params)
	for _, err := range result.Errors {
		logger.Errorf("reconcile collector %d: %v", collector.CollectorConfigID, err)
	}
	return result
}

// postHooks 审计与通知，失败只记日志，不影响主流程
func (s *CollectorService) postHooks(collector *model.CollectorConfig, isCreate bool, input *CollectorUpsertInput) {
	action := model.OperationActionUpdate
	if isCreate {
		action = model.OperationActionCreate
	}
	go s.writeAudit(input.Operator, collector, action, input)
	if isCreate {
		go func() {
			logger.Infof("collector %d (%s) created by %s, notify sent",
				collector.CollectorConfigID, collector.CollectorConfigName, input.Operator)
		}()
	}
}

func (s *CollectorService) writeAudit(operator string, collector *model.CollectorConfig, action string, params interface{}) {
	raw, _ := json.Marshal(params)
	record := model.UserOperationRecord{
		RecordID:       uuid.New().String(),
		Username:       operator,
		BkBizID:        collector.BkBizID,
		RecordType:     model.RecordTypeCollector,
		RecordObjectID: collector.CollectorConfigID,
		Action:         action,
		Params:         string(raw),
	}
	if err := s.db.Create(&record).Error; err != nil {
		logger.Errorf("write operation record failed: %v", err)
	}
}

// resolveDataLinkID 链路选择级联：指定 → 业务私有 → 公共 → 0
func (s *CollectorService) resolveDataLinkID(bkBizID, requested int) int {
	if requested > 0 {
		return requested
	}
	var link model.DataLinkConfig
	err := s.db.Where("bk_biz_id = ? AND is_active = ?", bkBizID, true).First(&link).Error
	if err == nil {
		return link.DataLinkID
	}
	err = s.db.Where("bk_biz_id = ? AND is_active = ?", 0, true).First(&link).Error
	if err == nil {
		return link.DataLinkID
	}
	return 0
}

// randomPublicClusterID 随机挑一个公共存储集群
func (s *CollectorService) randomPublicClusterID() (int, error) {
	var groups []model.StorageClusterGroup
	if err := s.db.Where("is_public = ?", true).Find(&groups).Error; err != nil {
		return 0, fmt.Errorf("load public storage clusters: %w", err)
	}
	if len(groups) == 0 {
		return 0, errcode.ErrPublicESClusterMissing()
	}
	return groups[rand.Intn(len(groups))].StorageClusterID, nil
}

// FastCreate 简化创建：自动选择公共存储集群、数据链路与默认清洗类型
// 清洗流水线本身不在这里注册，只预置 etl_config 取值
func (s *CollectorService) FastCreate(ctx context.Context, input *CollectorUpsertInput) (*CollectorUpsertResult, error) {
	if input.StorageClusterID == 0 {
		clusterID, err := s.randomPublicClusterID()
		if err != nil {
			return nil, err
		}
		input.StorageClusterID = clusterID
	}
	input.DataLinkID = s.resolveDataLinkID(input.BkBizID, input.DataLinkID)
	if input.ETLConfig == "" {
		input.ETLConfig = "bk_log_text"
	}

	result, err := s.CreateOrUpdate(ctx, input)
	if err != nil {
		return nil, err
	}
	logger.Infof("fast create collector %d with storage cluster %d",
		result.Collector.CollectorConfigID, input.StorageClusterID)
	return result, nil
}

// FastUpdate 限定可变字段的更新，不为新业务创建绑定
func (s *CollectorService) FastUpdate(ctx context.Context, input *CollectorUpsertInput) (*CollectorUpsertResult, error) {
	if input.CollectorConfigID <= 0 {
		return nil, errcode.ErrCollectorIdNotExist(input.CollectorConfigID)
	}
	key := s.lockKey(input)
	if !s.locks.TryLock(key) {
		return nil, errcode.ErrCreateOrUpdateSubscription(errors.New("采集项正在编排中"))
	}
	defer s.locks.Unlock(key)

	var record model.CollectorConfig
	if err := s.db.First(&record, input.CollectorConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrCollectorIdNotExist(input.CollectorConfigID)
		}
		return nil, fmt.Errorf("load collector %d: %w", input.CollectorConfigID, err)
	}

	// 不可变字段继承现状
	input.BkBizID = record.BkBizID
	input.BkdataBizID = record.BkdataBizID
	input.CollectorConfigNameEn = record.CollectorConfigNameEn
	input.CollectorScenarioID = record.CollectorScenarioID
	input.ETLProcessor = record.ETLProcessor
	input.TargetObjectType = record.TargetObjectType
	if input.TargetNodeType == "" {
		input.TargetNodeType = record.TargetNodeType
	}
	if len(input.TargetNodes) == 0 {
		input.TargetNodes = record.TargetNodes
	}
	if input.CollectorConfigName == "" {
		input.CollectorConfigName = record.CollectorConfigName
	}

	collector, _, err := s.persistCollector(ctx, input)
	if err != nil {
		return nil, err
	}

	bindings, err := s.subscription.ListBindings(collector.CollectorConfigID)
	if err != nil {
		return nil, err
	}
	existingBiz := make(map[int]bool, len(bindings))
	for _, b := range bindings {
		existingBiz[b.BkBizID] = true
	}

	reconcile := s.reconcile(ctx, collector, existingBiz)
	go s.writeAudit(input.Operator, collector, model.OperationActionUpdate, input)
	return &CollectorUpsertResult{Collector: collector, Reconcile: reconcile}, nil
}

// CustomCreate 自定义上报采集项：无目标，仅注册数据源
// OTLP日志类型额外创建自定义日志组
func (s *CollectorService) CustomCreate(ctx context.Context, input *CollectorUpsertInput) (*model.CollectorConfig, error) {
	input.TargetNodes = nil
	collector, _, err := s.persistCollector(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDataID(ctx, collector, input.IsAllowAloneDataID); err != nil {
		return nil, err
	}

	if collector.CustomType == model.CustomTypeOtlpLog && collector.LogGroupID == 0 {
		group, err := s.transfer.CreateLogGroup(ctx, remote.CreateLogGroupParams{
			BkDataID:     collector.BkDataID,
			BkBizID:      collector.BkBizID,
			LogGroupName: collector.CollectorConfigNameEn,
			Label:        collector.CategoryID,
			Operator:     input.Operator,
		})
		if err != nil {
			return nil, errcode.ErrCreateOrUpdateSubscription(fmt.Errorf("创建日志组失败: %w", err))
		}
		collector.LogGroupID = group.LogGroupID
		if err := s.db.Model(collector).Update("log_group_id", group.LogGroupID).Error; err != nil {
			return nil, fmt.Errorf("persist log_group_id: %w", err)
		}
	}

	go s.writeAudit(input.Operator, collector, model.OperationActionCreate, input)
	return collector, nil
}

// OnlyPersistModel 只落库不触发任何远端编排
func (s *CollectorService) OnlyPersistModel(ctx context.Context, input *CollectorUpsertInput) (*model.CollectorConfig, error) {
	collector, _, err := s.persistCollector(ctx, input)
	if err != nil {
		return nil, err
	}
	return collector, nil
}

// Start 启用采集项：打开全部订阅监听并触发启动
// ITSM 审批中（或审批状态查询失败）时拒绝启动
func (s *CollectorService) Start(ctx context.Context, collectorConfigID int, operator string) error {
	collector, err := s.loadCollector(collectorConfigID)
	if err != nil {
		return err
	}

	if s.cfg.Feature.CollectorITSM && collector.ITSMTicketSN != "" {
		status, err := s.itsm.GetTicketStatus(ctx, collector.ITSMTicketSN)
		if err != nil {
			logger.Warnf("itsm ticket %s status lookup failed, refuse start: %v", collector.ITSMTicketSN, err)
			return errcode.ErrITSMApplying()
		}
		if status.CurrentStatus != "FINISHED" && status.CurrentStatus != "TERMINATED" {
			return errcode.ErrITSMApplying()
		}
	}

	// 结果表已不存在时启用无意义，直接拒绝；查询失败放行，由后续链路兜底
	if collector.TableID != "" {
		table, err := s.transfer.GetResultTable(ctx, collector.TableID)
		if err != nil {
			logger.Warnf("result table %s lookup failed: %v", collector.TableID, err)
		} else if table.TableID == "" {
			return errcode.ErrResultTableNotExist(collector.TableID)
		}
	}

	if err := s.db.Model(collector).Update("is_active", true).Error; err != nil {
		return fmt.Errorf("activate collector %d: %w", collectorConfigID, err)
	}
	collector.IsActive = true

	if err := s.subscription.SwitchAll(ctx, collectorConfigID, "enable"); err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}
	if err := s.subscription.RunAction(ctx, collector, model.ActionStart, nil); err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}

	s.switchDownstream(ctx, collector, true)
	go s.writeAudit(operator, collector, model.OperationActionStart, nil)
	return nil
}

// Stop 停用采集项：关闭监听并下发停止动作
func (s *CollectorService) Stop(ctx context.Context, collectorConfigID int, operator string) error {
	collector, err := s.loadCollector(collectorConfigID)
	if err != nil {
		return err
	}

	if err := s.db.Model(collector).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("deactivate collector %d: %w", collectorConfigID, err)
	}
	collector.IsActive = false

	if err := s.subscription.SwitchAll(ctx, collectorConfigID, "disable"); err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}
	if err := s.subscription.RunAction(ctx, collector, model.ActionStop, nil); err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}

	s.switchDownstream(ctx, collector, false)
	go s.writeAudit(operator, collector, model.OperationActionStop, nil)
	return nil
}

// switchDownstream 启停联动索引集与结果表，失败只记日志
func (s *CollectorService) switchDownstream(ctx context.Context, collector *model.CollectorConfig, enable bool) {
	if collector.IndexSetID != 0 {
		if err := s.db.Model(&model.LogIndexSet{}).
			Where("index_set_id = ?", collector.IndexSetID).
			Update("is_active", enable).Error; err != nil {
			logger.Errorf("switch index set %d failed: %v", collector.IndexSetID, err)
		}
	}
	if collector.TableID != "" {
		if err := s.transfer.SwitchResultTable(ctx, remote.SwitchResultTableParams{
			TableID:  collector.TableID,
			IsEnable: enable,
		}); err != nil {
			logger.Errorf("switch result table %s failed: %v", collector.TableID, err)
		}
	}
}

// Destroy 销毁采集项
// 先持久化改名防止并发查询看到悬挂名称，再走停用与远端清理
func (s *CollectorService) Destroy(ctx context.Context, collectorConfigID int, operator string) error {
	collector, err := s.loadCollector(collectorConfigID)
	if err != nil {
		return err
	}

	deleteName := fmt.Sprintf("%s_delete_%s", collector.CollectorConfigName, time.Now().Format("20060102150405"))
	if err := s.db.Model(collector).Update("collector_config_name", deleteName).Error; err != nil {
		return fmt.Errorf("rename collector %d before destroy: %w", collectorConfigID, err)
	}
	collector.CollectorConfigName = deleteName

	if err := s.Stop(ctx, collectorConfigID, operator); err != nil {
		logger.Warnf("stop collector %d during destroy: %v", collectorConfigID, err)
	}

	if err := s.subscription.DeleteAll(ctx, collectorConfigID); err != nil {
		return errcode.ErrCreateOrUpdateSubscription(err)
	}

	if collector.IndexSetID != 0 {
		if err := s.db.Where("index_set_id = ?", collector.IndexSetID).
			Delete(&model.LogIndexSet{}).Error; err != nil {
			logger.Errorf("delete index set %d failed: %v", collector.IndexSetID, err)
		}
	}

	if err := s.db.Delete(collector).Error; err != nil {
		return fmt.Errorf("soft delete collector %d: %w", collectorConfigID, err)
	}

	if collector.BkDataID != 0 {
		if err := s.transfer.DeleteDataID(ctx, collector.BkDataID, collector.BkDataName); err != nil {
			logger.Errorf("delete data id %d failed: %v", collector.BkDataID, err)
		}
	}

	if err := s.db.Where("instance_id = ? AND instance_type = ?",
		collectorConfigID, model.ArchiveInstanceTypeCollectorConfig).
		Delete(&model.ArchiveConfig{}).Error; err != nil {
		logger.Errorf("detach archives of collector %d failed: %v", collectorConfigID, err)
	}

	go s.writeAudit(operator, collector, model.OperationActionDestroy, nil)
	return nil
}

// RetryInstances 重试指定实例的部署任务
func (s *CollectorService) RetryInstances(ctx context.Context, collectorConfigID int, instanceIDs []string, bkBizID int, operator string) error {
	collector, err := s.loadCollector(collectorConfigID)
	if err != nil {
		return err
	}
	if err := s.subscription.RetryInstances(ctx, collector, instanceIDs, bkBizID); err != nil {
		return err
	}
	go s.writeAudit(operator, collector, model.OperationActionRetry, instanceIDs)
	return nil
}

func (s *CollectorService) loadCollector(collectorConfigID int) (*model.CollectorConfig, error) {
	var collector model.CollectorConfig
	if err := s.db.First(&collector, collectorConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrCollectorNotExist()
		}
		return nil, fmt.Errorf("load collector %d: %w", collectorConfigID, err)
	}
	return &collector, nil
}
