package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/edu-backoffice/internal/common/config"
	dividendService "github.com/dumeirei/edu-backoffice/internal/service/dividend"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// 任务名称
const (
	TaskReconcileDividends = "reconcile_dividend_summaries"
	TaskRefreshConfigs     = "refresh_system_configs"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	dividendService *dividendService.DividendService
	registry        *setting.Registry
	logger          *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(dividendSvc *dividendService.DividendService, registry *setting.Registry, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{
		dividendService: dividendSvc,
		registry:        registry,
		logger:          logger.Named("tasks"),
	}
}

// ReconcileDividendSummaries 从分红记录重建全部股东汇总
func (h *TaskHandler) ReconcileDividendSummaries(ctx context.Context) error {
	summaries, err := h.dividendService.ReconcileSummaries(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("dividend summaries reconciled", zap.Int("shareholders", len(summaries)))
	return nil
}

// RefreshSystemConfigs 清空配置缓存，下次读取时重新加载
func (h *TaskHandler) RefreshSystemConfigs(_ context.Context) error {
	h.registry.Invalidate()
	return nil
}

// RegisterTasks 按配置注册任务
func (h *TaskHandler) RegisterTasks(s *Scheduler, cfg *config.SchedulerConfig) {
	s.AddTask(TaskReconcileDividends, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute, h.ReconcileDividendSummaries)
	s.AddTask(TaskRefreshConfigs, time.Duration(cfg.ConfigRefreshSeconds)*time.Second, h.RefreshSystemConfigs)
}
