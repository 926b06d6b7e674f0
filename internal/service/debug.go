package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
)

// RegexDebugResult 行首正则调试结果
type RegexDebugResult struct {
	Pattern    string `json:"pattern"`
	LogSample  string `json:"log_sample"`
	MatchLines int    `json:"match_lines"`
	TotalLines int    `json:"total_lines"`
}

// RegexDebug 校验多行合并正则并统计样例中的命中行数
func RegexDebug(pattern, logSample string) (*RegexDebugResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errcode.ErrRegexInvalid(err)
	}

	lines := strings.Split(strings.TrimRight(logSample, "\n"), "\n")
	matched := 0
	for _, line := range lines {
		if re.MatchString(line) {
			matched++
		}
	}
	if matched == 0 {
		return nil, errcode.ErrRegexMatch()
	}
	return &RegexDebugResult{
		Pattern:    pattern,
		LogSample:  logSample,
		MatchLines: matched,
		TotalLines: len(lines),
	}, nil
}

// Tail 采样预览采集项最近上报的数据
func (s *CollectorService) Tail(ctx context.Context, collectorConfigID int) ([]remote.KafkaTailMessage, error) {
	collector, err := s.loadCollector(collectorConfigID)
	if err != nil {
		return nil, err
	}
	if collector.BkDataID == 0 {
		return nil, errcode.ErrDataIdMissing()
	}
	messages, err := s.transfer.ListKafkaTail(ctx, remote.KafkaTailParams{
		BkDataID:  collector.BkDataID,
		Namespace: "default",
	})
	if err != nil {
		return nil, errcode.ErrCreateOrUpdateSubscription(err)
	}
	return messages, nil
}
