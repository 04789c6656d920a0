package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	courseService "github.com/dumeirei/edu-backoffice/internal/service/course"
)

// CourseHandler 课程管理处理器
type CourseHandler struct {
	courseService *courseService.CourseService
}

// NewCourseHandler 创建课程管理处理器
func NewCourseHandler(courseSvc *courseService.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseSvc}
}

// TrialStatusRequest 试听课状态更新请求
type TrialStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateTrial 创建试听课
// @Summary 创建试听课
// @Tags 管理端-课程
// @Accept json
// @Produce json
// @Param request body course.CreateTrialRequest true "请求参数"
// @Router /api/v1/courses/trial [post]
func (h *CourseHandler) CreateTrial(c *gin.Context) {
	var req courseService.CreateTrialRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	trial, err := h.courseService.CreateTrial(c.Request.Context(), &req)
	handler.MustCreate(c, err, trial)
}

// CreateFormal 创建正课
// @Summary 创建正课
// @Tags 管理端-课程
// @Accept json
// @Produce json
// @Param request body course.CreateFormalRequest true "请求参数"
// @Router /api/v1/courses/formal [post]
func (h *CourseHandler) CreateFormal(c *gin.Context) {
	var req courseService.CreateFormalRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	formal, err := h.courseService.CreateFormal(c.Request.Context(), &req)
	handler.MustCreate(c, err, formal)
}

// Convert 试听课转正课
// @Summary 试听课转正课
// @Tags 管理端-课程
// @Accept json
// @Produce json
// @Param id path int true "试听课ID"
// @Param request body course.FormalPayload true "正课内容"
// @Router /api/v1/courses/{id}/convert [post]
func (h *CourseHandler) Convert(c *gin.Context) {
	id, ok := handler.ParseID(c, "试听课")
	if !ok {
		return
	}
	var payload courseService.FormalPayload
	if !handler.BindJSON(c, &payload) {
		return
	}
	result, err := h.courseService.ConvertTrial(c.Request.Context(), id, &payload)
	handler.MustCreate(c, err, result)
}

// Renew 续课
// @Summary 续课
// @Tags 管理端-课程
// @Accept json
// @Produce json
// @Param id path int true "原正课ID"
// @Param request body course.FormalPayload true "续课内容"
// @Router /api/v1/courses/{id}/renewals [post]
func (h *CourseHandler) Renew(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	var payload courseService.FormalPayload
	if !handler.BindJSON(c, &payload) {
		return
	}
	renewal, err := h.courseService.CreateRenewal(c.Request.Context(), id, &payload)
	handler.MustCreate(c, err, renewal)
}

// UpdateTrialStatus 更新试听课状态
// @Summary 更新试听课状态
// @Tags 管理端-课程
// @Accept json
// @Param id path int true "试听课ID"
// @Router /api/v1/courses/{id}/trial-status [put]
func (h *CourseHandler) UpdateTrialStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "试听课")
	if !ok {
		return
	}
	var req TrialStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	trial, err := h.courseService.UpdateTrialStatus(c.Request.Context(), id, req.Status)
	handler.MustSucceed(c, err, trial)
}

// UpdateTrial 更新试听课
// @Summary 更新试听课
// @Tags 管理端-课程
// @Accept json
// @Param id path int true "试听课ID"
// @Router /api/v1/courses/{id}/trial [put]
func (h *CourseHandler) UpdateTrial(c *gin.Context) {
	id, ok := handler.ParseID(c, "试听课")
	if !ok {
		return
	}
	var req courseService.UpdateTrialRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	trial, err := h.courseService.UpdateTrial(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, trial)
}

// UpdateFormal 更新正课
// @Summary 更新正课
// @Tags 管理端-课程
// @Accept json
// @Param id path int true "正课ID"
// @Router /api/v1/courses/{id}/formal [put]
func (h *CourseHandler) UpdateFormal(c *gin.Context) {
	id, ok := handler.ParseID(c, "正课")
	if !ok {
		return
	}
	var req courseService.UpdateFormalRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	formal, err := h.courseService.UpdateFormal(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, formal)
}

// Get 获取课程详情
// @Summary 获取课程详情
// @Tags 管理端-课程
// @Param id path int true "课程ID"
// @Router /api/v1/courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	course, err := h.courseService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, course)
}

// Remaining 获取正课剩余课时
// @Summary 获取正课剩余课时
// @Tags 管理端-课程
// @Param id path int true "正课ID"
// @Router /api/v1/courses/{id}/remaining [get]
func (h *CourseHandler) Remaining(c *gin.Context) {
	id, ok := handler.ParseID(c, "正课")
	if !ok {
		return
	}
	remaining, err := h.courseService.RemainingSessions(c.Request.Context(), id)
	handler.MustSucceed(c, err, gin.H{"course_id": id, "remaining_sessions": remaining})
}

// List 课程列表
// @Summary 课程列表
// @Tags 管理端-课程
// @Param kind query string false "trial/formal"
// @Param status query string false "试听课状态"
// @Param customer_id query int false "客户ID"
// @Param employee_id query int false "负责员工ID"
// @Param is_renewal query bool false "是否续课"
// @Param include_customer query bool false "附带客户信息"
// @Router /api/v1/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	customerID, ok := handler.ParseQueryID(c, "customer_id", "客户")
	if !ok {
		return
	}
	employeeID, ok := handler.ParseQueryID(c, "employee_id", "员工")
	if !ok {
		return
	}
	isRenewal, ok := handler.ParseQueryBool(c, "is_renewal")
	if !ok {
		return
	}
	includeCustomer, ok := handler.ParseQueryBool(c, "include_customer")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	req := &courseService.ListRequest{
		Kind:        c.Query("kind"),
		TrialStatus: c.Query("status"),
		CustomerID:  customerID,
		EmployeeID:  employeeID,
		IsRenewal:   isRenewal,
		Page:        p.Page,
		PageSize:    p.PageSize,
	}
	if includeCustomer != nil {
		req.IncludeCustomer = *includeCustomer
	}
	result, err := h.courseService.List(c.Request.Context(), req)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// Delete 删除课程及其退费记录
// @Summary 删除课程
// @Tags 管理端-课程
// @Param id path int true "课程ID"
// @Router /api/v1/courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "课程")
	if !ok {
		return
	}
	if handler.HandleError(c, h.courseService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
