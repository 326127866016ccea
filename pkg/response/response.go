package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Fail 业务失败响应（HTTP 200，业务码非 0）
func Fail(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    -1,
		Message: message,
		Data:    data,
	})
}

// FailWithStatus 带 HTTP 状态码的失败响应
func FailWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    -1,
		Message: message,
	})
}

// AbortWithStatusJSON 终止请求并返回错误
func AbortWithStatusJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, Response{
		Code:    -1,
		Message: err.Error(),
	})
}
