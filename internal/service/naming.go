package service

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
)

// 以6-8位数字结尾的采集名与按日期滚动的结果表索引无法区分
var (
	nameEndDigitsPattern = regexp.MustCompile(`\d{6,8}$`)
	nameEnPattern        = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// CollectorNames 由业务与英文名推导出的一组标识
type CollectorNames struct {
	BkDataName    string
	ResultTableID string
	TableIDPrefix string
}

// NamingService 采集项命名服务
type NamingService struct {
	db  *gorm.DB
	cfg config.NamingConfig
}

// NewNamingService 创建命名服务
func NewNamingService(db *gorm.DB, cfg config.NamingConfig) *NamingService {
	return &NamingService{db: db, cfg: cfg}
}

// BuildNames 推导 bk_data_name / result_table_id，纯函数
// 负数业务使用空间前缀约定：space_{|biz|}_{prefix}
func (s *NamingService) BuildNames(bkBizID int, nameEn string) CollectorNames {
	var prefix string
	if bkBizID >= 0 {
		prefix = fmt.Sprintf("%d_%s", bkBizID, s.cfg.TableIDPrefix)
	} else {
		prefix = fmt.Sprintf("%s_%d_%s", s.cfg.TableSpacePrefix, -bkBizID, s.cfg.TableIDPrefix)
	}
	return CollectorNames{
		BkDataName:    fmt.Sprintf("%s_%s", prefix, nameEn),
		ResultTableID: fmt.Sprintf("%s.%s", prefix, nameEn),
		TableIDPrefix: prefix,
	}
}

// Precheck 校验命名合法性与唯一性；existingID 大于0时排除自身记录
func (s *NamingService) Precheck(bkBizID int, nameEn string, existingID int) error {
	if !nameEnPattern.MatchString(nameEn) {
		return errcode.ErrNameEnInvalid(nameEn)
	}
	if nameEndDigitsPattern.MatchString(nameEn) {
		return errcode.ErrNameEndDigits()
	}

	names := s.BuildNames(bkBizID, nameEn)

	var count int64
	query := s.db.Model(&model.CollectorConfig{}).
		Where("bk_biz_id = ? AND collector_config_name_en = ?", bkBizID, nameEn)
	if existingID > 0 {
		query = query.Where("collector_config_id != ?", existingID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check name_en duplicate: %w", err)
	}
	if count > 0 {
		return errcode.ErrNameEnDuplicate(nameEn)
	}

	query = s.db.Model(&model.CollectorConfig{}).
		Where("bk_data_name = ?", names.BkDataName)
	if existingID > 0 {
		query = query.Where("collector_config_id != ?", existingID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check bk_data_name duplicate: %w", err)
	}
	if count > 0 {
		return errcode.ErrDataNameDuplicate(names.BkDataName)
	}

	query = s.db.Model(&model.CollectorConfig{}).
		Where("table_id = ?", names.ResultTableID)
	if existingID > 0 {
		query = query.Where("collector_config_id != ?", existingID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check table_id duplicate: %w", err)
	}
	if count > 0 {
		return errcode.ErrResultTableDuplicate(names.ResultTableID)
	}
	return nil
}

// PrecheckName 校验展示名在业务内唯一
func (s *NamingService) PrecheckName(bkBizID int, name string, existingID int) error {
	var count int64
	query := s.db.Model(&model.CollectorConfig{}).
		Where("bk_biz_id = ? AND collector_config_name = ?", bkBizID, name)
	if existingID > 0 {
		query = query.Where("collector_config_id != ?", existingID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check name duplicate: %w", err)
	}
	if count > 0 {
		return errcode.ErrNameDuplicate(name)
	}
	return nil
}
