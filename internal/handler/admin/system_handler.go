package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/handler"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// SystemHandler 系统配置处理器
type SystemHandler struct {
	registry *setting.Registry
}

// NewSystemHandler 创建系统配置处理器
func NewSystemHandler(registry *setting.Registry) *SystemHandler {
	return &SystemHandler{registry: registry}
}

// SetConfigRequest 设置配置请求
type SetConfigRequest struct {
	Value string `json:"value"`
}

// ListConfigs 全部生效配置
// @Summary 全部生效配置
// @Tags 管理端-系统
// @Router /api/v1/configs [get]
func (h *SystemHandler) ListConfigs(c *gin.Context) {
	all, err := h.registry.All(c.Request.Context())
	handler.MustSucceed(c, err, all)
}

// GetConfig 读取单个配置
// @Summary 读取单个配置
// @Tags 管理端-系统
// @Param key path string true "配置键"
// @Router /api/v1/configs/{key} [get]
func (h *SystemHandler) GetConfig(c *gin.Context) {
	key := c.Param("key")
	value, err := h.registry.GetString(c.Request.Context(), key, "")
	handler.MustSucceed(c, err, gin.H{"key": key, "value": value})
}

// SetConfig 写入配置，新值只影响之后创建的课程快照
// @Summary 写入配置
// @Tags 管理端-系统
// @Param key path string true "配置键"
// @Param request body SetConfigRequest true "请求参数"
// @Router /api/v1/configs/{key} [put]
func (h *SystemHandler) SetConfig(c *gin.Context) {
	key := c.Param("key")
	var req SetConfigRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	err := h.registry.Set(c.Request.Context(), key, req.Value)
	handler.MustSucceed(c, err, gin.H{"key": key, "value": req.Value})
}
