// Package handler 提供 API Handler 的通用辅助函数
// 统一错误处理、参数解析和分页
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/service/period"
)

// StatusOf 按错误类别映射 HTTP 状态码
func StatusOf(kind errors.Kind) int {
	switch kind {
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case errors.KindTransactionFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 处理错误并发送响应
// err 为 nil 时返回 false；否则写入错误响应并返回 true，调用方应直接 return
//
// 使用示例:
//
//	result, err := service.DoSomething(ctx)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	appErr := errors.GetAppError(err)
	status := StatusOf(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logger.Path(c.FullPath()),
			logger.ErrKind(string(appErr.Kind)),
			logger.Err(err),
		)
	}
	_ = c.Error(err)
	response.Error(c, status, appErr.Code, string(appErr.Kind), appErr.Message)
	return true
}

// MustSucceed 有错误则返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustCreate 有错误则返回错误响应，否则返回 201
func MustCreate(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Created(c, data)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// BindJSON 绑定 JSON 请求体，失败时已发送 400
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "请求体格式错误: "+err.Error())
		return false
	}
	return true
}

// ParseID 解析路径参数 "id" 为 int64
// 返回 (0, false) 时已发送 400 响应
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为 int64
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID，参数为空时返回 (nil, true)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseQueryBool 解析可选布尔查询参数
func ParseQueryBool(c *gin.Context, paramName string) (*bool, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		response.BadRequest(c, "无效的参数: "+paramName)
		return nil, false
	}
	return &b, true
}

// ParseQueryInt 解析可选整数查询参数
func ParseQueryInt(c *gin.Context, paramName string) (*int, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		response.BadRequest(c, "无效的参数: "+paramName)
		return nil, false
	}
	return &n, true
}

// BindWindow 从 period、start_date、end_date 查询参数解析统计窗口
//
// period 缺省为 month；custom 周期需要两个日期，包含结束日当天。
func BindWindow(c *gin.Context, now time.Time) (period.Window, bool) {
	start, err := period.ParseDate(c.Query("start_date"))
	if HandleError(c, err) {
		return period.Window{}, false
	}
	end, err := period.ParseDate(c.Query("end_date"))
	if HandleError(c, err) {
		return period.Window{}, false
	}
	p := c.Query("period")
	if p == "" && start != nil && end != nil {
		p = period.Custom
	}
	w, err := period.Resolve(p, now, start, end)
	if HandleError(c, err) {
		return period.Window{}, false
	}
	return w, true
}

// BindPagination 从查询参数绑定并规范化分页参数
// 默认 page=1, page_size=10, 最大 100
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
