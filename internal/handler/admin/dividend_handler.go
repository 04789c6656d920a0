package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	dividendService "github.com/dumeirei/edu-backoffice/internal/service/dividend"
)

// DividendHandler 股东分红处理器
type DividendHandler struct {
	dividendService *dividendService.DividendService
}

// NewDividendHandler 创建股东分红处理器
func NewDividendHandler(dividendSvc *dividendService.DividendService) *DividendHandler {
	return &DividendHandler{dividendService: dividendSvc}
}

// Shareholders 股东及分红汇总
// @Summary 股东及分红汇总
// @Tags 管理端-分红
// @Router /api/v1/dividends/shareholders [get]
func (h *DividendHandler) Shareholders(c *gin.Context) {
	infos, err := h.dividendService.Shareholders(c.Request.Context())
	handler.MustSucceed(c, err, infos)
}

// Records 分红记录列表
// @Summary 分红记录列表
// @Tags 管理端-分红
// @Param shareholder query string false "股东名"
// @Param year query int false "年"
// @Param month query int false "月"
// @Param status query string false "pending/paid/cancelled"
// @Router /api/v1/dividends/records [get]
func (h *DividendHandler) Records(c *gin.Context) {
	year, ok := handler.ParseQueryInt(c, "year")
	if !ok {
		return
	}
	month, ok := handler.ParseQueryInt(c, "month")
	if !ok {
		return
	}
	records, err := h.dividendService.Records(c.Request.Context(), &dividendService.RecordFilter{
		ShareholderName: c.Query("shareholder"),
		Year:            year,
		Month:           month,
		Status:          c.Query("status"),
	})
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, records, int64(len(records)), 1, len(records))
}

// Create 创建分红记录
// @Summary 创建分红记录
// @Tags 管理端-分红
// @Accept json
// @Param request body dividend.CreateRequest true "请求参数"
// @Router /api/v1/dividends/records [post]
func (h *DividendHandler) Create(c *gin.Context) {
	var req dividendService.CreateRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	record, err := h.dividendService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, record)
}

// Update 更新分红记录
// @Summary 更新分红记录
// @Tags 管理端-分红
// @Param id path int true "分红记录ID"
// @Router /api/v1/dividends/records/{id} [put]
func (h *DividendHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "分红记录")
	if !ok {
		return
	}
	var req dividendService.UpdateRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	record, err := h.dividendService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, record)
}

// Delete 删除分红记录
// @Summary 删除分红记录
// @Tags 管理端-分红
// @Param id path int true "分红记录ID"
// @Router /api/v1/dividends/records/{id} [delete]
func (h *DividendHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "分红记录")
	if !ok {
		return
	}
	if handler.HandleError(c, h.dividendService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// RebuildSummary 按记录重建股东汇总
// @Summary 重建股东分红汇总
// @Tags 管理端-分红
// @Param name path string true "股东名"
// @Router /api/v1/dividends/summaries/{name}/rebuild [post]
func (h *DividendHandler) RebuildSummary(c *gin.Context) {
	summary, err := h.dividendService.RebuildSummary(c.Request.Context(), c.Param("name"))
	handler.MustSucceed(c, err, summary)
}

// Stats 分红统计
// @Summary 分红统计
// @Tags 管理端-分红
// @Param shareholder query string false "股东名，为空时统计全部"
// @Router /api/v1/dividends/stats [get]
func (h *DividendHandler) Stats(c *gin.Context) {
	stats, err := h.dividendService.Stats(c.Request.Context(), c.Query("shareholder"))
	handler.MustSucceed(c, err, stats)
}

// Preview 月度分红预览
// @Summary 月度分红预览
// @Tags 管理端-分红
// @Param year query int true "年"
// @Param month query int true "月"
// @Router /api/v1/dividends/preview [get]
func (h *DividendHandler) Preview(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}
	preview, err := h.dividendService.Preview(c.Request.Context(), year, month)
	handler.MustSucceed(c, err, preview)
}
