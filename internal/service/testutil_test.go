package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
)

var testDBSeq int64

// newTestDB 每个测试独立的内存数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.CollectorConfig{},
		&model.SubscriptionBinding{},
		&model.ContainerCollectorConfig{},
		&model.DataLinkConfig{},
		&model.LogIndexSet{},
		&model.ArchiveConfig{},
		&model.UserOperationRecord{},
		&model.StorageClusterGroup{},
	))
	return db
}

func testNamingConfig() config.NamingConfig {
	return config.NamingConfig{TableIDPrefix: "bklog", TableSpacePrefix: "space"}
}

func testSubscriptionConfig() config.SubscriptionConfig {
	return config.SubscriptionConfig{
		Concurrent:          10,
		DefaultMaxTimeoutMS: 15000,
		PluginName:          "bkmonitorbeat",
	}
}

// fakeNodeMan 记录调用的节点管理假客户端
type fakeNodeMan struct {
	mu sync.Mutex

	nextSubscriptionID int
	nextTaskID         int

	createCalls []remote.SubscriptionParams
	updateCalls []remote.SubscriptionParams
	switchCalls []remote.SwitchSubscriptionParams
	runCalls    []remote.RunSubscriptionTaskParams
	retryCalls  []remote.RetrySubscriptionParams
	deleteCalls []remote.DeleteSubscriptionParams

	statistics map[int]remote.SubscriptionStatistic
	statErr    map[int]error
	taskStatus map[int]*remote.TaskStatusResult
}

func newFakeNodeMan() *fakeNodeMan {
	return &fakeNodeMan{
		nextSubscriptionID: 100,
		nextTaskID:         1000,
		statistics:         make(map[int]remote.SubscriptionStatistic),
		statErr:            make(map[int]error),
		taskStatus:         make(map[int]*remote.TaskStatusResult),
	}
}

func (f *fakeNodeMan) CreateSubscription(_ context.Context, params *remote.SubscriptionParams) (*remote.SubscriptionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSubscriptionID++
	f.createCalls = append(f.createCalls, *params)
	return &remote.SubscriptionResult{SubscriptionID: f.nextSubscriptionID}, nil
}

func (f *fakeNodeMan) UpdateSubscription(_ context.Context, params *remote.SubscriptionParams) (*remote.SubscriptionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTaskID++
	f.updateCalls = append(f.updateCalls, *params)
	return &remote.SubscriptionResult{SubscriptionID: params.SubscriptionID, TaskID: f.nextTaskID}, nil
}

func (f *fakeNodeMan) SwitchSubscription(_ context.Context, params remote.SwitchSubscriptionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchCalls = append(f.switchCalls, params)
	return nil
}

func (f *fakeNodeMan) RunSubscriptionTask(_ context.Context, params remote.RunSubscriptionTaskParams) (*remote.RunTaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTaskID++
	f.runCalls = append(f.runCalls, params)
	return &remote.RunTaskResult{TaskID: f.nextTaskID}, nil
}

func (f *fakeNodeMan) RetrySubscription(_ context.Context, params remote.RetrySubscriptionParams) (*remote.RunTaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTaskID++
	f.retryCalls = append(f.retryCalls, params)
	return &remote.RunTaskResult{TaskID: f.nextTaskID}, nil
}

func (f *fakeNodeMan) DeleteSubscription(_ context.Context, params remote.DeleteSubscriptionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, params)
	return nil
}

func (f *fakeNodeMan) SubscriptionStatistic(_ context.Context, params remote.SubscriptionStatisticParams) ([]remote.SubscriptionStatistic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []remote.SubscriptionStatistic
	for _, id := range params.SubscriptionIDList {
		if err, ok := f.statErr[id]; ok {
			return nil, err
		}
		if stat, ok := f.statistics[id]; ok {
			result = append(result, stat)
		}
	}
	return result, nil
}

func (f *fakeNodeMan) GetSubscriptionTaskStatus(_ context.Context, params remote.TaskStatusParams) (*remote.TaskStatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result, ok := f.taskStatus[params.SubscriptionID]; ok {
		return result, nil
	}
	return &remote.TaskStatusResult{}, nil
}

// fakeTransfer 元数据服务假客户端
type fakeTransfer struct {
	mu sync.Mutex

	nextDataID  int
	modifyCalls []remote.ModifyDataIDParams
	switchCalls []remote.SwitchResultTableParams
	deleteCalls []int

	// storage 按 result_table_id 预置存储信息
	storage map[string]remote.ClusterInfo
	// failTables 内含任一表则该次批量请求整体失败
	failTables map[string]bool
	// omitTables 请求中被静默丢弃的表
	omitTables map[string]bool
	// missingTables 元数据侧不存在的结果表
	missingTables map[string]bool
	// storageCalls 每次 GetResultTableStorage 的入参
	storageCalls []string

	tailMessages []remote.KafkaTailMessage
	logGroupID   int
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{
		nextDataID:    5000,
		storage:       make(map[string]remote.ClusterInfo),
		failTables:    make(map[string]bool),
		omitTables:    make(map[string]bool),
		missingTables: make(map[string]bool),
		logGroupID:    77,
	}
}

func (f *fakeTransfer) CreateDataID(_ context.Context, _ remote.CreateDataIDParams) (*remote.DataIDResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextDataID++
	return &remote.DataIDResult{BkDataID: f.nextDataID}, nil
}

func (f *fakeTransfer) ModifyDataID(_ context.Context, params remote.ModifyDataIDParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modifyCalls = append(f.modifyCalls, params)
	return nil
}

func (f *fakeTransfer) GetResultTable(_ context.Context, tableID string) (*remote.ResultTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingTables[tableID] {
		return &remote.ResultTable{}, nil
	}
	return &remote.ResultTable{TableID: tableID, IsEnable: true}, nil
}

func (f *fakeTransfer) GetResultTableStorage(_ context.Context, params remote.ResultTableStorageParams) (map[string]remote.ClusterInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls = append(f.storageCalls, params.ResultTableList)

	tables := splitTables(params.ResultTableList)
	// 批量请求命中故障表即整体失败；单表请求不受影响，模拟分片级故障
	if len(tables) > 1 {
		for _, id := range tables {
			if f.failTables[id] {
				return nil, fmt.Errorf("storage backend unavailable")
			}
		}
	}
	result := make(map[string]remote.ClusterInfo)
	for _, id := range tables {
		// 批量响应中静默缺失的表，单表查询仍可命中
		if len(tables) > 1 && f.omitTables[id] {
			continue
		}
		if info, ok := f.storage[id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func (f *fakeTransfer) SwitchResultTable(_ context.Context, params remote.SwitchResultTableParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchCalls = append(f.switchCalls, params)
	return nil
}

func (f *fakeTransfer) CreateLogGroup(_ context.Context, _ remote.CreateLogGroupParams) (*remote.LogGroupResult, error) {
	return &remote.LogGroupResult{LogGroupID: f.logGroupID, BkDataToken: "token"}, nil
}

func (f *fakeTransfer) ListKafkaTail(_ context.Context, _ remote.KafkaTailParams) ([]remote.KafkaTailMessage, error) {
	return f.tailMessages, nil
}

func (f *fakeTransfer) DeleteDataID(_ context.Context, dataID int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, dataID)
	return nil
}

func splitTables(list string) []string {
	var tables []string
	start := 0
	for i := 0; i <= len(list); i++ {
		if i == len(list) || list[i] == ',' {
			if i > start {
				tables = append(tables, list[start:i])
			}
			start = i + 1
		}
	}
	return tables
}

// fakeCMDB 配置平台假客户端，hosts 为各业务的合法主机，
// 支持 host_property_filter 规则过滤与分页
type fakeCMDB struct {
	mu    sync.Mutex
	hosts map[int][]remote.CMDBHost
	calls []remote.ListBizHostsParams
}

func newFakeCMDB() *fakeCMDB {
	return &fakeCMDB{hosts: make(map[int][]remote.CMDBHost)}
}

func (f *fakeCMDB) ListBizHosts(_ context.Context, params remote.ListBizHostsParams) (*remote.ListBizHostsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)

	matched := f.hosts[params.BkBizID]
	if params.HostPropertyFilter != nil {
		matched = filterCMDBHosts(matched, params.HostPropertyFilter)
	}

	start, limit := params.Page.Start, params.Page.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	var page []remote.CMDBHost
	if start < len(matched) {
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = matched[start:end]
	}
	return &remote.ListBizHostsResult{Count: len(matched), Info: page}, nil
}

func filterCMDBHosts(hosts []remote.CMDBHost, filter map[string]interface{}) []remote.CMDBHost {
	rules, _ := filter["rules"].([]map[string]interface{})
	var kept []remote.CMDBHost
	for _, host := range hosts {
		for _, rule := range rules {
			if cmdbRuleMatches(host, rule) {
				kept = append(kept, host)
				break
			}
		}
	}
	return kept
}

func cmdbRuleMatches(host remote.CMDBHost, rule map[string]interface{}) bool {
	switch rule["field"] {
	case "bk_host_innerip":
		ips, _ := rule["value"].([]string)
		for _, ip := range ips {
			if ip == host.BkHostInnerIP {
				return true
			}
		}
	case "bk_host_id":
		ids, _ := rule["value"].([]int)
		for _, id := range ids {
			if id == host.BkHostID {
				return true
			}
		}
	}
	return false
}

// fakeBkData 计算平台假客户端
type fakeBkData struct {
	mu          sync.Mutex
	deployCalls []remote.DeployPlanParams
	putCalls    []int
}

func (f *fakeBkData) DeployPlanPost(_ context.Context, params remote.DeployPlanParams) (*remote.DeployPlanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployCalls = append(f.deployCalls, params)
	return &remote.DeployPlanResult{RawDataID: params.PreassignedDataID}, nil
}

func (f *fakeBkData) DeployPlanPut(_ context.Context, rawDataID int, _ remote.DeployPlanParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls = append(f.putCalls, rawDataID)
	return nil
}

// fakeITSM 流程服务假客户端
type fakeITSM struct {
	status string
	err    error
}

func (f *fakeITSM) GetTicketStatus(_ context.Context, _ string) (*remote.TicketStatusResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &remote.TicketStatusResult{CurrentStatus: f.status}, nil
}

// newTestCollectorService 组装一套带假远端的采集项服务
func newTestCollectorService(t *testing.T) (*CollectorService, *fakeNodeMan, *fakeTransfer, *fakeCMDB, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	nodeMan := newFakeNodeMan()
	transfer := newFakeTransfer()
	cmdb := newFakeCMDB()
	cfg := &config.Config{
		Naming:       testNamingConfig(),
		Subscription: testSubscriptionConfig(),
	}
	naming := NewNamingService(db, cfg.Naming)
	params := NewParamsBuilder(cfg.Subscription, cfg.Naming)
	subscription := NewSubscriptionService(db, nodeMan, cfg.Subscription.Concurrent)
	svc := NewCollectorService(db, cfg, naming, params, subscription, transfer, cmdb, &fakeBkData{}, &fakeITSM{status: "FINISHED"})
	return svc, nodeMan, transfer, cmdb, db
}
