// Package tracing 提供 OpenTelemetry 分布式追踪单元测试
package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func setupInMemory(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := Init(&Config{
		ServiceName: "tracing-test",
		SampleRate:  1.0,
		Enabled:     true,
		Exporter:    exporter,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tracer.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
	return tracer, exporter
}

func TestInit(t *testing.T) {
	t.Run("使用默认配置", func(t *testing.T) {
		tracer, err := Init(nil)
		require.NoError(t, err)
		require.NotNil(t, tracer)
		assert.Equal(t, "edu-backoffice", tracer.config.ServiceName)
		_ = tracer.Shutdown(context.Background())
	})

	t.Run("禁用追踪", func(t *testing.T) {
		tracer, err := Init(&Config{ServiceName: "disabled", Enabled: false})
		require.NoError(t, err)
		assert.Nil(t, tracer.provider)
		assert.NoError(t, tracer.Shutdown(context.Background()))
		assert.NoError(t, tracer.ForceFlush(context.Background()))
	})

	t.Run("部分采样率", func(t *testing.T) {
		tracer, err := Init(&Config{ServiceName: "ratio", SampleRate: 0.5, Enabled: true, Exporter: tracetest.NewInMemoryExporter()})
		require.NoError(t, err)
		_ = tracer.Shutdown(context.Background())
	})
	otel.SetTracerProvider(noop.NewTracerProvider())
}

func TestStartAndEnd(t *testing.T) {
	tracer, exporter := setupInMemory(t)

	t.Run("成功的span", func(t *testing.T) {
		ctx, span := Start(context.Background(), "refund.apply", WithCourseID(7), WithPeriod("this_month"))
		AddEvent(ctx, "validated")
		SetAttributes(ctx, WithRefundID(3))
		End(span, nil)
	})

	t.Run("失败的span", func(t *testing.T) {
		_, span := Start(context.Background(), "dividend.create", WithShareholder("股东A"))
		End(span, errors.New("boom"))
	})

	require.NoError(t, tracer.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "refund.apply", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)

	assert.Equal(t, "dividend.create", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestStart_WithoutInit(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())
	ctx, span := Start(context.Background(), "noop")
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
	End(span, errors.New("ignored"))
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, int64(1), WithCustomerID(1).Value.AsInt64())
	assert.Equal(t, int64(2), WithEmployeeID(2).Value.AsInt64())
	assert.Equal(t, "股东B", WithShareholder("股东B").Value.AsString())
	assert.Equal(t, "course.id", string(WithCourseID(5).Key))
}
