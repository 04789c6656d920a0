// Package tracing 提供 OpenTelemetry 分布式追踪
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName 业务 span 使用的追踪器名称
const InstrumentationName = "github.com/dumeirei/edu-backoffice"

// Config 追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // OTLP endpoint, empty for stdout
	SampleRate     float64
	Enabled        bool

	// Exporter 非空时直接使用，忽略 Endpoint
	Exporter sdktrace.SpanExporter
}

// Tracer 追踪器包装
type Tracer struct {
	provider *sdktrace.TracerProvider
	config   *Config
}

// Init 初始化追踪器并设置全局 TracerProvider
func Init(cfg *Config) (*Tracer, error) {
	if cfg == nil {
		cfg = &Config{
			ServiceName: "edu-backoffice",
			Environment: "development",
			SampleRate:  1.0,
			Enabled:     true,
		}
	}

	if !cfg.Enabled {
		return &Tracer{config: cfg}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源失败: %w", err)
	}

	exporter := cfg.Exporter
	if exporter == nil {
		if cfg.Endpoint != "" {
			client := otlptracegrpc.NewClient(
				otlptracegrpc.WithEndpoint(cfg.Endpoint),
				otlptracegrpc.WithInsecure(),
			)
			exporter, err = otlptrace.New(context.Background(), client)
			if err != nil {
				return nil, fmt.Errorf("创建 OTLP 导出器失败: %w", err)
			}
		} else {
			exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
			if err != nil {
				return nil, fmt.Errorf("创建 stdout 导出器失败: %w", err)
			}
		}
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{provider: provider, config: cfg}, nil
}

// Shutdown 关闭追踪器，刷新未导出的 span
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// ForceFlush 立即导出缓冲中的 span
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.ForceFlush(ctx)
	}
	return nil
}

// Start 使用全局 TracerProvider 开始一个业务 span
//
// 未初始化追踪时全局 provider 为 noop，调用开销可以忽略。
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End 结束 span，err 非空时标记为错误
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddEvent 添加事件到当前 span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes 设置当前 span 属性
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// 常用属性键
var (
	AttrCustomerID  = attribute.Key("customer.id")
	AttrCourseID    = attribute.Key("course.id")
	AttrRefundID    = attribute.Key("refund.id")
	AttrEmployeeID  = attribute.Key("employee.id")
	AttrShareholder = attribute.Key("shareholder.name")
	AttrPeriod      = attribute.Key("period")
	AttrOperation   = attribute.Key("operation")
)

// WithCustomerID 添加客户 ID 属性
func WithCustomerID(id int64) attribute.KeyValue {
	return AttrCustomerID.Int64(id)
}

// WithCourseID 添加课程 ID 属性
func WithCourseID(id int64) attribute.KeyValue {
	return AttrCourseID.Int64(id)
}

// WithRefundID 添加退费 ID 属性
func WithRefundID(id int64) attribute.KeyValue {
	return AttrRefundID.Int64(id)
}

// WithEmployeeID 添加员工 ID 属性
func WithEmployeeID(id int64) attribute.KeyValue {
	return AttrEmployeeID.Int64(id)
}

// WithShareholder 添加股东属性
func WithShareholder(name string) attribute.KeyValue {
	return AttrShareholder.String(name)
}

// WithPeriod 添加统计周期属性
func WithPeriod(period string) attribute.KeyValue {
	return AttrPeriod.String(period)
}
