// Package admin 管理端 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	customerService "github.com/dumeirei/edu-backoffice/internal/service/customer"
)

// CustomerHandler 客户管理处理器
type CustomerHandler struct {
	customerService *customerService.CustomerService
}

// NewCustomerHandler 创建客户管理处理器
func NewCustomerHandler(customerSvc *customerService.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerSvc}
}

// Create 创建客户
// @Summary 创建客户
// @Tags 管理端-客户
// @Accept json
// @Produce json
// @Param request body customer.CreateCustomerRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.Customer}
// @Router /api/v1/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerService.CreateCustomerRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, customer)
}

// Get 获取客户详情
// @Summary 获取客户详情
// @Tags 管理端-客户
// @Produce json
// @Param id path int true "客户ID"
// @Router /api/v1/customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "客户")
	if !ok {
		return
	}
	customer, err := h.customerService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, customer)
}

// Update 更新客户
// @Summary 更新客户
// @Tags 管理端-客户
// @Accept json
// @Produce json
// @Param id path int true "客户ID"
// @Router /api/v1/customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "客户")
	if !ok {
		return
	}
	var req customerService.UpdateCustomerRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, customer)
}

// List 客户列表
// @Summary 客户列表
// @Tags 管理端-客户
// @Produce json
// @Param keyword query string false "姓名或手机号关键词"
// @Param source query string false "来源"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Router /api/v1/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	p := handler.BindPagination(c)
	req := &customerService.ListRequest{
		Keyword:  c.Query("keyword"),
		Source:   c.Query("source"),
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	result, err := h.customerService.List(c.Request.Context(), req)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// Delete 删除客户及其课程和退费记录
// @Summary 删除客户
// @Tags 管理端-客户
// @Param id path int true "客户ID"
// @Router /api/v1/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "客户")
	if !ok {
		return
	}
	if handler.HandleError(c, h.customerService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
