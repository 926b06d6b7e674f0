package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/cache"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

const clusterInfoStorageType = "elasticsearch"

// ClusterInfoService 结果表存储信息批量查询
// 批量拉取失败的表逐个重试一次，仍缺失的表用哨兵值补齐
type ClusterInfoService struct {
	transfer remote.TransferClient
	cfg      config.ClusterInfoConfig
}

// NewClusterInfoService 创建集群信息查询服务
func NewClusterInfoService(transfer remote.TransferClient, cfg config.ClusterInfoConfig) *ClusterInfoService {
	if cfg.BulkLimit <= 0 {
		cfg.BulkLimit = 50
	}
	return &ClusterInfoService{transfer: transfer, cfg: cfg}
}

// sentinelClusterInfo 查询不到存储信息时的占位值
func sentinelClusterInfo() remote.ClusterInfo {
	return remote.ClusterInfo{
		ClusterConfig: remote.ClusterConfig{ClusterID: -1, ClusterName: ""},
		StorageConfig: remote.StorageConfig{Retention: 0},
	}
}

// BulkClusterInfos 批量查询结果表存储信息，全部命中的结果缓存一小时
func (s *ClusterInfoService) BulkClusterInfos(ctx context.Context, resultTableIDs []string) map[string]remote.ClusterInfo {
	// 去重并保持首次出现顺序
	seen := make(map[string]bool, len(resultTableIDs))
	var tableIDs []string
	for _, id := range resultTableIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		tableIDs = append(tableIDs, id)
	}
	if len(tableIDs) == 0 {
		return map[string]remote.ClusterInfo{}
	}

	cacheKey := clusterInfoCacheKey(tableIDs)
	if cached, ok := cache.Get(cacheKey); ok {
		if infos, ok := cached.(map[string]remote.ClusterInfo); ok {
			return infos
		}
	}

	result := make(map[string]remote.ClusterInfo, len(tableIDs))
	var mu sync.Mutex

	// 分片并行批量查询
	var retryIDs []string
	var wg sync.WaitGroup
	for start := 0; start < len(tableIDs); start += s.cfg.BulkLimit {
		end := start + s.cfg.BulkLimit
		if end > len(tableIDs) {
			end = len(tableIDs)
		}
		chunk := tableIDs[start:end]
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()
			infos, err := s.transfer.GetResultTableStorage(ctx, remote.ResultTableStorageParams{
				ResultTableList: strings.Join(chunk, ","),
				StorageType:     clusterInfoStorageType,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnf("bulk cluster info chunk failed, fallback to per-table retry: %v", err)
				retryIDs = append(retryIDs, chunk...)
				return
			}
			for _, id := range chunk {
				if info, ok := infos[id]; ok {
					result[id] = info
				} else {
					retryIDs = append(retryIDs, id)
				}
			}
		}(chunk)
	}
	wg.Wait()

	// 缺失的表逐个重试一次，不做二次重试
	var retryWg sync.WaitGroup
	for _, id := range retryIDs {
		retryWg.Add(1)
		go func(id string) {
			defer retryWg.Done()
			infos, err := s.transfer.GetResultTableStorage(ctx, remote.ResultTableStorageParams{
				ResultTableList: id,
				StorageType:     clusterInfoStorageType,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnf("cluster info retry for %s failed: %v", id, err)
				return
			}
			if info, ok := infos[id]; ok {
				result[id] = info
			}
		}(id)
	}
	retryWg.Wait()

	missing := 0
	for _, id := range tableIDs {
		if _, ok := result[id]; !ok {
			result[id] = sentinelClusterInfo()
			missing++
		}
	}

	// 哨兵值来自临时故障，不落缓存，下一次调用重新拉取
	if missing == 0 {
		cache.SetWithTTL(cacheKey, result, s.cfg.CacheTTL)
	}
	return result
}

func clusterInfoCacheKey(tableIDs []string) string {
	sum := md5.Sum([]byte(strings.Join(tableIDs, ",")))
	return "cluster_info:" + hex.EncodeToString(sum[:])
}
