// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/dumeirei/edu-backoffice/docs"
	"github.com/dumeirei/edu-backoffice/internal/common/cache"
	"github.com/dumeirei/edu-backoffice/internal/common/config"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	adminHandler "github.com/dumeirei/edu-backoffice/internal/handler/admin"
	"github.com/dumeirei/edu-backoffice/internal/middleware"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/scheduler"
	courseService "github.com/dumeirei/edu-backoffice/internal/service/course"
	customerService "github.com/dumeirei/edu-backoffice/internal/service/customer"
	dividendService "github.com/dumeirei/edu-backoffice/internal/service/dividend"
	employeeService "github.com/dumeirei/edu-backoffice/internal/service/employee"
	financeService "github.com/dumeirei/edu-backoffice/internal/service/finance"
	marketingService "github.com/dumeirei/edu-backoffice/internal/service/marketing"
	refundService "github.com/dumeirei/edu-backoffice/internal/service/refund"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// maxRequestBody 请求体上限
const maxRequestBody = 1 << 20

// dependencies 路由依赖
type dependencies struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	redis    *redis.Client // 未启用 Redis 时为空
	registry *setting.Registry
	metrics  *metrics.Metrics
}

// handlers 管理端处理器集合
type handlers struct {
	customer  *adminHandler.CustomerHandler
	course    *adminHandler.CourseHandler
	refund    *adminHandler.RefundHandler
	employee  *adminHandler.EmployeeHandler
	marketing *adminHandler.MarketingHandler
	finance   *adminHandler.FinanceHandler
	dividend  *adminHandler.DividendHandler
	system    *adminHandler.SystemHandler

	tasks *scheduler.TaskHandler
}

// buildHandlers 组装仓储、服务和处理器
func buildHandlers(deps *dependencies) *handlers {
	db := deps.db

	// 初始化仓储
	customerRepo := repository.NewCustomerRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	shillRepo := repository.NewShillOrderRepository(db)
	costRepo := repository.NewOperationalCostRepository(db)
	dividendRepo := repository.NewDividendRepository(db)

	var locker cache.Locker = cache.NoopLocker{}
	if deps.redis != nil {
		ttl := time.Duration(deps.cfg.Business.Lock.TTLSeconds) * time.Second
		locker = cache.NewRedisLocker(deps.redis, ttl)
	}

	// 初始化服务
	customerSvc := customerService.NewCustomerService(db, customerRepo, courseRepo, refundRepo)
	courseSvc := courseService.NewCourseService(db, courseRepo, customerRepo, refundRepo, employeeRepo, deps.registry, locker)
	refundSvc := refundService.NewRefundService(db, courseRepo, refundRepo)
	employeeSvc := employeeService.NewEmployeeService(db, employeeRepo, courseRepo)
	shillSvc := marketingService.NewShillOrderService(db, shillRepo)
	reportSvc := financeService.NewReportService(db, courseRepo, refundRepo, employeeRepo, shillRepo, costRepo, deps.registry)
	costSvc := financeService.NewCostService(db, costRepo, reportSvc)
	dividendSvc := dividendService.NewDividendService(db, dividendRepo, reportSvc, deps.registry)

	// 初始化处理器
	return &handlers{
		customer:  adminHandler.NewCustomerHandler(customerSvc),
		course:    adminHandler.NewCourseHandler(courseSvc),
		refund:    adminHandler.NewRefundHandler(refundSvc),
		employee:  adminHandler.NewEmployeeHandler(employeeSvc),
		marketing: adminHandler.NewMarketingHandler(shillSvc),
		finance:   adminHandler.NewFinanceHandler(reportSvc, costSvc),
		dividend:  adminHandler.NewDividendHandler(dividendSvc),
		system:    adminHandler.NewSystemHandler(deps.registry),

		tasks: scheduler.NewTaskHandler(dividendSvc, deps.registry, deps.logger),
	}
}

// setupRouter 设置路由，返回组装好的处理器
func setupRouter(r *gin.Engine, deps *dependencies) *handlers {
	cfg := deps.cfg

	// 全局中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.logger))
	r.Use(middleware.AccessLog(middleware.DefaultAccessLogConfig(deps.logger)))
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.RequestSizeLimiter(maxRequestBody))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(&middleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ready", "/metrics"},
		}))
		r.Use(middleware.InjectTraceContext())
	}
	if deps.metrics != nil {
		r.Use(deps.metrics.Middleware())
	}

	// 健康检查
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(deps.db, deps.redis))
	if deps.metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, deps.metrics.Handler())
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := buildHandlers(deps)

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled && deps.redis != nil {
		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		v1.Use(middleware.WriteRateLimit(deps.redis, cfg.RateLimit.Limit, window))
	}

	registerCustomerRoutes(v1, h)
	registerCourseRoutes(v1, h)
	registerEmployeeRoutes(v1, h)
	registerMarketingRoutes(v1, h)
	registerFinanceRoutes(v1, h)
	registerDividendRoutes(v1, h)
	registerSystemRoutes(v1, h)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})

	return h
}

// registerCustomerRoutes 客户路由
func registerCustomerRoutes(v1 *gin.RouterGroup, h *handlers) {
	customers := v1.Group("/customers")
	{
		customers.POST("", h.customer.Create)
		customers.GET("", h.customer.List)
		customers.GET("/:id", h.customer.Get)
		customers.PUT("/:id", h.customer.Update)
		customers.DELETE("/:id", h.customer.Delete)
	}
}

// registerCourseRoutes 课程和退费路由
func registerCourseRoutes(v1 *gin.RouterGroup, h *handlers) {
	courses := v1.Group("/courses")
	{
		courses.POST("/trial", h.course.CreateTrial)
		courses.POST("/formal", h.course.CreateFormal)
		courses.GET("", h.course.List)
		courses.GET("/:id", h.course.Get)
		courses.DELETE("/:id", h.course.Delete)
		courses.GET("/:id/remaining", h.course.Remaining)
		courses.POST("/:id/convert", h.course.Convert)
		courses.POST("/:id/renewals", h.course.Renew)
		courses.PUT("/:id/trial", h.course.UpdateTrial)
		courses.PUT("/:id/trial-status", h.course.UpdateTrialStatus)
		courses.PUT("/:id/formal", h.course.UpdateFormal)

		courses.GET("/:id/refund-quote", h.refund.Quote)
		courses.GET("/:id/refunds", h.refund.History)
		courses.POST("/:id/refunds", h.refund.Apply)
	}

	v1.POST("/refunds/:id/cancel", h.refund.Cancel)
}

// registerEmployeeRoutes 员工路由
func registerEmployeeRoutes(v1 *gin.RouterGroup, h *handlers) {
	employees := v1.Group("/employees")
	{
		employees.POST("", h.employee.Create)
		employees.GET("", h.employee.List)
		employees.GET("/monthly-cost", h.employee.MonthlyCost)
		employees.GET("/:id", h.employee.Get)
		employees.PUT("/:id", h.employee.Update)
		employees.DELETE("/:id", h.employee.Delete)
		employees.GET("/:id/commission", h.employee.GetCommission)
		employees.PUT("/:id/commission", h.employee.SetCommission)
	}
}

// registerMarketingRoutes 刷单路由
func registerMarketingRoutes(v1 *gin.RouterGroup, h *handlers) {
	orders := v1.Group("/shill-orders")
	{
		orders.POST("", h.marketing.Create)
		orders.GET("", h.marketing.List)
		orders.GET("/summary", h.marketing.Summary)
		orders.GET("/:id", h.marketing.Get)
		orders.PUT("/:id", h.marketing.Update)
		orders.DELETE("/:id", h.marketing.Delete)
		orders.POST("/:id/settle", h.marketing.Settle)
	}
}

// registerFinanceRoutes 财务报表和运营成本路由
func registerFinanceRoutes(v1 *gin.RouterGroup, h *handlers) {
	finance := v1.Group("/finance", middleware.NoCache())
	{
		finance.GET("/profit", h.finance.Profit)
		finance.GET("/comprehensive", h.finance.Comprehensive)
		finance.GET("/allocation", h.finance.Allocation)
		finance.GET("/courses/:id/profit", h.finance.CourseProfit)
		finance.GET("/employees/:id/performance", h.finance.Performance)

		finance.POST("/costs", h.finance.CreateCost)
		finance.GET("/costs", h.finance.ListCosts)
		finance.GET("/costs/:id", h.finance.GetCost)
		finance.PUT("/costs/:id", h.finance.UpdateCost)
		finance.DELETE("/costs/:id", h.finance.DeleteCost)
	}
}

// registerDividendRoutes 分红路由
func registerDividendRoutes(v1 *gin.RouterGroup, h *handlers) {
	dividends := v1.Group("/dividends", middleware.NoCache())
	{
		dividends.GET("/shareholders", h.dividend.Shareholders)
		dividends.GET("/stats", h.dividend.Stats)
		dividends.GET("/preview", h.dividend.Preview)
		dividends.GET("/records", h.dividend.Records)
		dividends.POST("/records", h.dividend.Create)
		dividends.PUT("/records/:id", h.dividend.Update)
		dividends.DELETE("/records/:id", h.dividend.Delete)
		dividends.POST("/summaries/:name/rebuild", h.dividend.RebuildSummary)
	}
}

// registerSystemRoutes 系统配置路由
func registerSystemRoutes(v1 *gin.RouterGroup, h *handlers) {
	configs := v1.Group("/configs")
	{
		configs.GET("", h.system.ListConfigs)
		configs.GET("/:key", h.system.GetConfig)
		configs.PUT("/:key", h.system.SetConfig)
	}
}
