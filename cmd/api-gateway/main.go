// Package main 是应用程序入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/edu-backoffice/internal/common/cache"
	"github.com/dumeirei/edu-backoffice/internal/common/config"
	"github.com/dumeirei/edu-backoffice/internal/common/database"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
	"github.com/dumeirei/edu-backoffice/internal/common/tracing"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/scheduler"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

const version = "1.0.0"

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()

	log.Info("Starting Edu Backoffice",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
	)

	// 初始化链路追踪
	tracer, err := tracing.Init(&tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Mode,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 初始化指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init(cfg.Metrics.Namespace)
	}

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database migrated")
	}

	// 初始化 Redis 连接
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.Init(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Redis connected successfully")
	} else {
		log.Warn("Redis disabled, trial creation relies on unique index only")
	}

	// 初始化配置注册表
	registry := setting.NewRegistry(db, repository.NewSystemConfigRepository(db), cfg.Business.Finance.Seeds())
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := registry.Seed(seedCtx); err != nil {
		seedCancel()
		log.Fatal("Failed to seed system configs", zap.Error(err))
	}
	seedCancel()

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 设置路由
	h := setupRouter(engine, &dependencies{
		cfg:      cfg,
		logger:   log,
		db:       db,
		redis:    redisClient,
		registry: registry,
		metrics:  m,
	})

	// 启动定时任务
	var sched *scheduler.Scheduler
	if cfg.Business.Scheduler.Enabled {
		sched = scheduler.NewScheduler(log)
		h.tasks.RegisterTasks(sched, &cfg.Business.Scheduler)
		sched.Start()
	}

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if sched != nil {
		sched.Stop()
	}

	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}

	if redisClient != nil {
		if err := cache.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	log.Info("Server exited")
}
