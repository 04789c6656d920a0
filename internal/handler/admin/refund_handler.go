package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	refundService "github.com/dumeirei/edu-backoffice/internal/service/refund"
)

// RefundHandler 退费处理器
type RefundHandler struct {
	refundService *refundService.RefundService
}

// NewRefundHandler 创建退费处理器
func NewRefundHandler(refundSvc *refundService.RefundService) *RefundHandler {
	return &RefundHandler{refundService: refundSvc}
}

// CancelRefundRequest 取消退费请求
type CancelRefundRequest struct {
	Reason *string `json:"reason"`
}

// Quote 退费报价，不写入数据
// @Summary 退费报价
// @Tags 管理端-退费
// @Param id path int true "正课ID"
// @Param sessions query int true "退费课时"
// @Router /api/v1/courses/{id}/refund-quote [get]
func (h *RefundHandler) Quote(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	sessions, err := strconv.Atoi(c.Query("sessions"))
	if err != nil {
		response.BadRequest(c, "无效的退费课时")
		return
	}
	quote, err := h.refundService.Quote(c.Request.Context(), id, sessions)
	handler.MustSucceed(c, err, quote)
}

// Apply 申请退费
// @Summary 申请退费
// @Tags 管理端-退费
// @Accept json
// @Param id path int true "正课ID"
// @Param request body refund.ApplyRequest true "请求参数"
// @Router /api/v1/courses/{id}/refunds [post]
func (h *RefundHandler) Apply(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	var req refundService.ApplyRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	refund, err := h.refundService.Apply(c.Request.Context(), id, &req)
	handler.MustCreate(c, err, refund)
}

// History 课程退费历史
// @Summary 课程退费历史
// @Tags 管理端-退费
// @Param id path int true "正课ID"
// @Router /api/v1/courses/{id}/refunds [get]
func (h *RefundHandler) History(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	history, err := h.refundService.History(c.Request.Context(), id)
	handler.MustSucceed(c, err, history)
}

// Cancel 取消退费
// @Summary 取消退费
// @Tags 管理端-退费
// @Param id path int true "退费ID"
// @Router /api/v1/refunds/{id}/cancel [post]
func (h *RefundHandler) Cancel(c *gin.Context) {
	id, ok := handler.ParseID(c, "退费")
	if !ok {
		return
	}
	var req CancelRefundRequest
	if c.Request.ContentLength > 0 && !handler.BindJSON(c, &req) {
		return
	}
	refund, err := h.refundService.Cancel(c.Request.Context(), id, req.Reason)
	handler.MustSucceed(c, err, refund)
}
