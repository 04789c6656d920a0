package admin

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	financeService "github.com/dumeirei/edu-backoffice/internal/service/finance"
)

// FinanceHandler 财务报表与运营成本处理器
type FinanceHandler struct {
	reportService *financeService.ReportService
	costService   *financeService.CostService
	now           func() time.Time
}

// NewFinanceHandler 创建财务处理器
func NewFinanceHandler(reportSvc *financeService.ReportService, costSvc *financeService.CostService) *FinanceHandler {
	return &FinanceHandler{
		reportService: reportSvc,
		costService:   costSvc,
		now:           time.Now,
	}
}

// Profit 利润报表
// @Summary 利润报表
// @Tags 管理端-财务
// @Param period query string false "month/quarter/year/custom" default(month)
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Router /api/v1/finance/profit [get]
func (h *FinanceHandler) Profit(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	report, err := h.reportService.Profit(c.Request.Context(), w)
	handler.MustSucceed(c, err, report)
}

// Comprehensive 综合财务报表
// @Summary 综合财务报表
// @Tags 管理端-财务
// @Param period query string false "month/quarter/year/custom" default(month)
// @Router /api/v1/finance/comprehensive [get]
func (h *FinanceHandler) Comprehensive(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	report, err := h.reportService.Comprehensive(c.Request.Context(), w)
	handler.MustSucceed(c, err, report)
}

// CourseProfit 单节课程利润
// @Summary 单节课程利润
// @Tags 管理端-财务
// @Param id path int true "课程ID"
// @Param include_refunds query bool false "是否计入退费" default(true)
// @Router /api/v1/finance/courses/{id}/profit [get]
func (h *FinanceHandler) CourseProfit(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	include := true
	v, ok := handler.ParseQueryBool(c, "include_refunds")
	if !ok {
		return
	}
	if v != nil {
		include = *v
	}
	profit, err := h.reportService.CourseProfit(c.Request.Context(), id, include)
	handler.MustSucceed(c, err, profit)
}

// Performance 员工业绩
// @Summary 员工业绩
// @Tags 管理端-财务
// @Param id path int true "员工ID"
// @Router /api/v1/finance/employees/{id}/performance [get]
func (h *FinanceHandler) Performance(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	perf, err := h.reportService.Performance(c.Request.Context(), id, w)
	handler.MustSucceed(c, err, perf)
}

// Allocation 运营成本分摊
// @Summary 运营成本分摊
// @Tags 管理端-财务
// @Router /api/v1/finance/allocation [get]
func (h *FinanceHandler) Allocation(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	alloc, err := h.costService.Allocation(c.Request.Context(), w)
	handler.MustSucceed(c, err, alloc)
}

// CreateCost 创建运营成本
// @Summary 创建运营成本
// @Tags 管理端-运营成本
// @Accept json
// @Param request body finance.CreateCostRequest true "请求参数"
// @Router /api/v1/finance/costs [post]
func (h *FinanceHandler) CreateCost(c *gin.Context) {
	var req financeService.CreateCostRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	cost, err := h.costService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, cost)
}

// GetCost 获取运营成本
// @Summary 获取运营成本
// @Tags 管理端-运营成本
// @Param id path int true "成本ID"
// @Router /api/v1/finance/costs/{id} [get]
func (h *FinanceHandler) GetCost(c *gin.Context) {
	id, ok := handler.ParseID(c, "运营成本")
	if !ok {
		return
	}
	cost, err := h.costService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, cost)
}

// UpdateCost 更新运营成本
// @Summary 更新运营成本
// @Tags 管理端-运营成本
// @Param id path int true "成本ID"
// @Router /api/v1/finance/costs/{id} [put]
func (h *FinanceHandler) UpdateCost(c *gin.Context) {
	id, ok := handler.ParseID(c, "运营成本")
	if !ok {
		return
	}
	var req financeService.UpdateCostRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	cost, err := h.costService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, cost)
}

// DeleteCost 删除运营成本
// @Summary 删除运营成本
// @Tags 管理端-运营成本
// @Param id path int true "成本ID"
// @Router /api/v1/finance/costs/{id} [delete]
func (h *FinanceHandler) DeleteCost(c *gin.Context) {
	id, ok := handler.ParseID(c, "运营成本")
	if !ok {
		return
	}
	if handler.HandleError(c, h.costService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// ListCosts 运营成本列表
// @Summary 运营成本列表
// @Tags 管理端-运营成本
// @Param cost_type query string false "成本类型"
// @Param status query string false "active/archived"
// @Router /api/v1/finance/costs [get]
func (h *FinanceHandler) ListCosts(c *gin.Context) {
	w, ok := handler.BindWindow(c, h.now())
	if !ok {
		return
	}
	costs, err := h.costService.List(c.Request.Context(), &financeService.CostListRequest{
		Window:   w,
		CostType: c.Query("cost_type"),
		Status:   c.Query("status"),
	})
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, costs, int64(len(costs)), 1, len(costs))
}

// parseYearMonth 解析 year、month 查询参数
func parseYearMonth(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.BadRequest(c, "无效的年份")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.BadRequest(c, "无效的月份")
		return 0, 0, false
	}
	return year, month, true
}
