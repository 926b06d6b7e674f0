package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/errcode"
)

// Response 统一返回结构
type Response struct {
	Result  bool        `json:"result"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// OK 成功返回
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Result: true, Code: 0, Message: "success", Data: data})
}

// Fail 失败返回；业务错误保留错误码，其余按内部错误处理
func Fail(c *gin.Context, err error) {
	var bizErr *errcode.Error
	if errors.As(err, &bizErr) {
		c.JSON(http.StatusOK, Response{Result: false, Code: bizErr.Code, Message: bizErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{Result: false, Code: -1, Message: err.Error()})
}

// BadRequest 参数错误返回
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Result: false, Code: -1, Message: "请求参数无效: " + err.Error()})
}
