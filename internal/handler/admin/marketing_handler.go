package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	marketingService "github.com/dumeirei/edu-backoffice/internal/service/marketing"
)

// MarketingHandler 刷单管理处理器
type MarketingHandler struct {
	shillService *marketingService.ShillOrderService
	now          func() time.Time
}

// NewMarketingHandler 创建刷单管理处理器
func NewMarketingHandler(shillSvc *marketingService.ShillOrderService) *MarketingHandler {
	return &MarketingHandler{shillService: shillSvc, now: time.Now}
}

// Create 创建刷单记录
// @Summary 创建刷单记录
// @Tags 管理端-营销
// @Accept json
// @Param request body marketing.CreateShillOrderRequest true "请求参数"
// @Router /api/v1/shill-orders [post]
func (h *MarketingHandler) Create(c *gin.Context) {
	var req marketingService.CreateShillOrderRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	order, err := h.shillService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, order)
}

// Get 获取刷单记录
// @Summary 获取刷单记录
// @Tags 管理端-营销
// @Param id path int true "刷单ID"
// @Router /api/v1/shill-orders/{id} [get]
func (h *MarketingHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "刷单")
	if !ok {
		return
	}
	order, err := h.shillService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, order)
}

// Update 更新刷单记录
// @Summary 更新刷单记录
// @Tags 管理端-营销
// @Param id path int true "刷单ID"
// @Router /api/v1/shill-orders/{id} [put]
func (h *MarketingHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "刷单")
	if !ok {
		return
	}
	var req marketingService.UpdateShillOrderRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	order, err := h.shillService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, order)
}

// Delete 删除刷单记录
// @Summary 删除刷单记录
// @Tags 管理端-营销
// @Param id path int true "刷单ID"
// @Router /api/v1/shill-orders/{id} [delete]
func (h *MarketingHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "刷单")
	if !ok {
		return
	}
	if handler.HandleError(c, h.shillService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// Settle 结算刷单
// @Summary 结算刷单
// @Tags 管理端-营销
// @Param id path int true "刷单ID"
// @Router /api/v1/shill-orders/{id}/settle [post]
func (h *MarketingHandler) Settle(c *gin.Context) {
	id, ok := handler.ParseID(c, "刷单")
	if !ok {
		return
	}
	order, err := h.shillService.Settle(c.Request.Context(), id)
	handler.MustSucceed(c, err, order)
}

// List 刷单列表，按下单时间筛选
// @Summary 刷单列表
// @Tags 管理端-营销
// @Param settled query bool false "是否已结算"
// @Router /api/v1/shill-orders [get]
func (h *MarketingHandler) List(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	settled, ok := handler.ParseQueryBool(c, "settled")
	if !ok {
		return
	}
	orders, err := h.shillService.List(c.Request.Context(), &marketingService.ListRequest{Window: &w, Settled: settled})
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, orders, int64(len(orders)), 1, len(orders))
}

// Summary 刷单汇总
// @Summary 刷单汇总
// @Tags 管理端-营销
// @Router /api/v1/shill-orders/summary [get]
func (h *MarketingHandler) Summary(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	totals, err := h.shillService.Summarize(c.Request.Context(), w)
	handler.MustSucceed(c, err, totals)
}
