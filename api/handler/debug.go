package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/service"
)

// DebugHandler 调试类接口处理器
type DebugHandler struct{}

// NewDebugHandler 创建调试处理器
func NewDebugHandler() *DebugHandler {
	return &DebugHandler{}
}

// RegexDebug 多行合并正则调试
func (h *DebugHandler) RegexDebug(c *gin.Context) {
	var req struct {
		MultilinePattern string `json:"multiline_pattern"`
		LogSample        string `json:"log_sample"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	result, err := service.RegexDebug(req.MultilinePattern, req.LogSample)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, result)
}
