package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/service"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// CollectorHandler 采集项处理器
type CollectorHandler struct {
	collectorService *service.CollectorService
	namingService    *service.NamingService
}

// NewCollectorHandler 创建采集项处理器
func NewCollectorHandler(collectorService *service.CollectorService, namingService *service.NamingService) *CollectorHandler {
	return &CollectorHandler{
		collectorService: collectorService,
		namingService:    namingService,
	}
}

func collectorID(c *gin.Context) (int, error) {
	return strconv.Atoi(c.Param("collector_config_id"))
}

// CreateOrUpdate 创建或更新采集项
func (h *CollectorHandler) CreateOrUpdate(c *gin.Context) {
	var input service.CollectorUpsertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err)
		return
	}
	result, err := h.collectorService.CreateOrUpdate(c.Request.Context(), &input)
	if err != nil {
		logger.Errorf("create or update collector failed: %v", err)
		Fail(c, err)
		return
	}
	OK(c, result)
}

// FastCreate 简化创建
func (h *CollectorHandler) FastCreate(c *gin.Context) {
	var input service.CollectorUpsertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err)
		return
	}
	result, err := h.collectorService.FastCreate(c.Request.Context(), &input)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, result)
}

// FastUpdate 简化更新
func (h *CollectorHandler) FastUpdate(c *gin.Context) {
	var input service.CollectorUpsertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err)
		return
	}
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	input.CollectorConfigID = id
	result, err := h.collectorService.FastUpdate(c.Request.Context(), &input)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, result)
}

// CustomCreate 自定义上报采集项
func (h *CollectorHandler) CustomCreate(c *gin.Context) {
	var input service.CollectorUpsertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err)
		return
	}
	collector, err := h.collectorService.CustomCreate(c.Request.Context(), &input)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, collector)
}

// PreCheck 命名预校验，返回是否可用而不报错
func (h *CollectorHandler) PreCheck(c *gin.Context) {
	var req struct {
		BkBizID               int    `json:"bk_biz_id"`
		CollectorConfigNameEn string `json:"collector_config_name_en"`
		CollectorConfigID     int    `json:"collector_config_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	if err := h.namingService.Precheck(req.BkBizID, req.CollectorConfigNameEn, req.CollectorConfigID); err != nil {
		OK(c, gin.H{"allowed": false, "message": err.Error()})
		return
	}
	OK(c, gin.H{"allowed": true, "message": ""})
}

type operatorRequest struct {
	Operator string `json:"operator"`
}

// Start 启用采集项
func (h *CollectorHandler) Start(c *gin.Context) {
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	var req operatorRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.collectorService.Start(c.Request.Context(), id, req.Operator); err != nil {
		Fail(c, err)
		return
	}
	OK(c, nil)
}

// Stop 停用采集项
func (h *CollectorHandler) Stop(c *gin.Context) {
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	var req operatorRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.collectorService.Stop(c.Request.Context(), id, req.Operator); err != nil {
		Fail(c, err)
		return
	}
	OK(c, nil)
}

// Destroy 销毁采集项
func (h *CollectorHandler) Destroy(c *gin.Context) {
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	var req operatorRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.collectorService.Destroy(c.Request.Context(), id, req.Operator); err != nil {
		Fail(c, err)
		return
	}
	OK(c, nil)
}

// Retry 重试指定实例
func (h *CollectorHandler) Retry(c *gin.Context) {
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	var req struct {
		InstanceIDList []string `json:"instance_id_list"`
		BkBizID        int      `json:"bk_biz_id"`
		Operator       string   `json:"operator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	if len(req.InstanceIDList) == 0 {
		Fail(c, errcode.ErrSubscriptionInfoNotFound())
		return
	}
	if err := h.collectorService.RetryInstances(c.Request.Context(), id, req.InstanceIDList, req.BkBizID, req.Operator); err != nil {
		Fail(c, err)
		return
	}
	OK(c, nil)
}

// Tail 采样预览最近上报数据
func (h *CollectorHandler) Tail(c *gin.Context) {
	id, err := collectorID(c)
	if err != nil {
		BadRequest(c, err)
		return
	}
	messages, err := h.collectorService.Tail(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, messages)
}
