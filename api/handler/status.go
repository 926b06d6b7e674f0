package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/model"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/service"
	"gorm.io/gorm"
)

// StatusHandler 状态查询处理器
type StatusHandler struct {
	db              *gorm.DB
	statusService   *service.StatusService
	instanceService *service.InstanceStatusService
	clusterInfo     *service.ClusterInfoService
}

// NewStatusHandler 创建状态查询处理器
func NewStatusHandler(
	db *gorm.DB,
	statusService *service.StatusService,
	instanceService *service.InstanceStatusService,
	clusterInfo *service.ClusterInfoService,
) *StatusHandler {
	return &StatusHandler{
		db:              db,
		statusService:   statusService,
		instanceService: instanceService,
		clusterInfo:     clusterInfo,
	}
}

// BatchStatus 批量查询采集项状态
func (h *StatusHandler) BatchStatus(c *gin.Context) {
	var req struct {
		CollectorIDList []int `json:"collector_id_list"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	statuses, err := h.statusService.GetStatusByCollectorIDs(c.Request.Context(), req.CollectorIDList)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, statuses)
}

// TaskStatus 查询采集项实例级部署状态
func (h *StatusHandler) TaskStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("collector_config_id"))
	if err != nil {
		BadRequest(c, err)
		return
	}
	var collector model.CollectorConfig
	if err := h.db.First(&collector, id).Error; err != nil {
		Fail(c, errcode.ErrCollectorNotExist())
		return
	}
	instances, err := h.instanceService.GetTaskStatus(c.Request.Context(), &collector)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, instances)
}

// ClusterInfos 批量查询结果表存储信息
func (h *StatusHandler) ClusterInfos(c *gin.Context) {
	var req struct {
		ResultTableList []string `json:"result_table_list"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	OK(c, h.clusterInfo.BulkClusterInfos(c.Request.Context(), req.ResultTableList))
}
