// Package response 提供统一的 API 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ContextKeyKind 错误响应写入的错误类别，供访问日志读取
const ContextKeyKind = "response_error_kind"

// KindOf 返回本次请求错误响应的类别，成功响应为空
func KindOf(c *gin.Context) string {
	return c.GetString(ContextKeyKind)
}

// fail 写入错误信封并记录类别
func fail(c *gin.Context, status int, resp Response) {
	if resp.Kind != "" {
		c.Set(ContextKeyKind, resp.Kind)
	}
	c.JSON(status, resp)
}

// PageData 分页数据结构
type PageData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 成功响应（带消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List:     list,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		},
	})
}

// Error 错误响应
func Error(c *gin.Context, status, code int, kind, message string) {
	fail(c, status, Response{
		Code:    code,
		Kind:    kind,
		Message: message,
	})
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, Response{
		Code:    400,
		Kind:    "validation",
		Message: message,
	})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	fail(c, http.StatusNotFound, Response{
		Code:    404,
		Kind:    "not_found",
		Message: message,
	})
}

// InternalError 服务器内部错误
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	fail(c, http.StatusInternalServerError, Response{
		Code:    500,
		Message: message,
	})
}
