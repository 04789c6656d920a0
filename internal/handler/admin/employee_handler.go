package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/common/response"
	employeeService "github.com/dumeirei/edu-backoffice/internal/service/employee"
)

// EmployeeHandler 员工管理处理器
type EmployeeHandler struct {
	employeeService *employeeService.EmployeeService
}

// NewEmployeeHandler 创建员工管理处理器
func NewEmployeeHandler(employeeSvc *employeeService.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeSvc}
}

// Create 创建员工
// @Summary 创建员工
// @Tags 管理端-员工
// @Accept json
// @Param request body employee.CreateEmployeeRequest true "请求参数"
// @Router /api/v1/employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req employeeService.CreateEmployeeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	employee, err := h.employeeService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, employee)
}

// Get 获取员工
// @Summary 获取员工
// @Tags 管理端-员工
// @Param id path int true "员工ID"
// @Router /api/v1/employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	employee, err := h.employeeService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, employee)
}

// Update 更新员工
// @Summary 更新员工
// @Tags 管理端-员工
// @Param id path int true "员工ID"
// @Router /api/v1/employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	var req employeeService.UpdateEmployeeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	employee, err := h.employeeService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, employee)
}

// Delete 删除员工
// @Summary 删除员工
// @Tags 管理端-员工
// @Param id path int true "员工ID"
// @Router /api/v1/employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	if handler.HandleError(c, h.employeeService.Delete(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// List 员工列表
// @Summary 员工列表
// @Tags 管理端-员工
// @Param active query bool false "只看在职"
// @Router /api/v1/employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	active, ok := handler.ParseQueryBool(c, "active")
	if !ok {
		return
	}
	employees, err := h.employeeService.List(c.Request.Context(), active != nil && *active)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, employees, int64(len(employees)), 1, len(employees))
}

// GetCommission 获取员工提成配置
// @Summary 获取员工提成配置
// @Tags 管理端-员工
// @Param id path int true "员工ID"
// @Router /api/v1/employees/{id}/commission [get]
func (h *EmployeeHandler) GetCommission(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	cfg, err := h.employeeService.GetCommissionConfig(c.Request.Context(), id)
	handler.MustSucceed(c, err, cfg)
}

// SetCommission 设置员工提成配置
// @Summary 设置员工提成配置
// @Tags 管理端-员工
// @Param id path int true "员工ID"
// @Param request body employee.CommissionConfigRequest true "请求参数"
// @Router /api/v1/employees/{id}/commission [put]
func (h *EmployeeHandler) SetCommission(c *gin.Context) {
	id, ok := handler.ParseID(c, "员工")
	if !ok {
		return
	}
	var req employeeService.CommissionConfigRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	cfg, err := h.employeeService.SetCommissionConfig(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, cfg)
}

// MonthlyCost 员工月度人力成本
// @Summary 员工月度人力成本
// @Tags 管理端-员工
// @Router /api/v1/employees/monthly-cost [get]
func (h *EmployeeHandler) MonthlyCost(c *gin.Context) {
	cost, err := h.employeeService.MonthlyCost(c.Request.Context())
	handler.MustSucceed(c, err, gin.H{"monthly_cost": cost})
}
