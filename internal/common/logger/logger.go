// Package logger 提供结构化日志功能
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/edu-backoffice/internal/common/config"
)

// 日志输出目标
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

var (
	mu  sync.RWMutex
	log *zap.Logger
)

// Init 按配置初始化全局日志器
func Init(cfg *config.LoggerConfig) error {
	core, err := newCore(cfg)
	if err != nil {
		return err
	}

	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	Replace(zap.New(core, options...))
	return nil
}

func newCore(cfg *config.LoggerConfig) (zapcore.Core, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var sinks []zapcore.WriteSyncer
	switch cfg.Output {
	case "", OutputStdout:
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
	case OutputFile, OutputBoth:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("logger output %q requires file_path", cfg.Output)
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
		if cfg.Output == OutputBoth {
			sinks = append(sinks, zapcore.AddSync(os.Stdout))
		}
	default:
		return nil, fmt.Errorf("unsupported logger output: %s", cfg.Output)
	}

	return zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level), nil
}

// Replace 替换全局日志器，返回恢复原日志器的函数
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := log
	log = l
	mu.Unlock()
	return func() {
		mu.Lock()
		log = prev
		mu.Unlock()
	}
}

// GetLogger 获取全局日志器，未初始化时使用开发配置
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log, _ = zap.NewDevelopment()
	}
	return log
}

// Sync 刷新缓冲
func Sync() error {
	return GetLogger().Sync()
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// 常用字段构造函数
var (
	String = zap.String
	Int    = zap.Int
	Int64  = zap.Int64
	Err    = zap.Error
)

// CustomerID 客户ID
func CustomerID(id int64) zap.Field { return zap.Int64("customer_id", id) }

// CourseID 课程ID
func CourseID(id int64) zap.Field { return zap.Int64("course_id", id) }

// RefundID 退费ID
func RefundID(id int64) zap.Field { return zap.Int64("refund_id", id) }

// EmployeeID 员工ID
func EmployeeID(id int64) zap.Field { return zap.Int64("employee_id", id) }

// Shareholder 股东名
func Shareholder(name string) zap.Field { return zap.String("shareholder", name) }

// ErrKind 错误类别，与响应信封的 kind 一致
func ErrKind(kind string) zap.Field { return zap.String("error_kind", kind) }

// Module 所属业务模块
func Module(name string) zap.Field { return zap.String("module", name) }

// Path 路由模板
func Path(path string) zap.Field { return zap.String("path", path) }
