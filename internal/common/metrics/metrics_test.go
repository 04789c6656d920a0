// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInit(t *testing.T) {
	t.Run("使用默认命名空间", func(t *testing.T) {
		m := Init("")
		require.NotNil(t, m)
		assert.NotNil(t, m.httpRequestsTotal)
		assert.NotNil(t, m.httpRequestDuration)
		assert.NotNil(t, m.httpRequestsInFlight)
		assert.NotNil(t, m.cacheHitsTotal)
		assert.NotNil(t, m.cacheMissesTotal)
		assert.NotNil(t, m.refundsTotal)
		assert.NotNil(t, m.reportBuildDuration)
		assert.NotNil(t, m.transactionsRollback)
		assert.NotNil(t, m.dividendsTotal)
	})

	t.Run("重复初始化同一命名空间", func(t *testing.T) {
		assert.NotPanics(t, func() {
			Init("dup")
			Init("dup")
		})
	})
}

func TestGetMetrics(t *testing.T) {
	m := Init("test")
	assert.Same(t, m, GetMetrics())
}

func TestMetrics_RecordCache(t *testing.T) {
	m := Init("test_cache")

	m.RecordCacheHit("system_config")
	m.RecordCacheHit("system_config")
	m.RecordCacheMiss("system_config")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("system_config")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMissesTotal.WithLabelValues("system_config")))
}

func TestMetrics_RecordRefund(t *testing.T) {
	m := Init("test_refund")

	t.Run("应用退费累加金额", func(t *testing.T) {
		m.RecordRefund("apply", 1000)
		m.RecordRefund("apply", 250.5)
		assert.Equal(t, float64(2), testutil.ToFloat64(m.refundsTotal.WithLabelValues("apply")))
		assert.InDelta(t, 1250.5, testutil.ToFloat64(m.refundAmountTotal), 0.0001)
	})

	t.Run("取消退费不计金额", func(t *testing.T) {
		m.RecordRefund("cancel", 1000)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.refundsTotal.WithLabelValues("cancel")))
		assert.InDelta(t, 1250.5, testutil.ToFloat64(m.refundAmountTotal), 0.0001)
	})
}

func TestMetrics_RecordRollbackAndDividend(t *testing.T) {
	m := Init("test_rollback")

	m.RecordRollback("refund", "business_rule")
	m.RecordDividend("create")
	m.RecordDividend("delete")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.transactionsRollback.WithLabelValues("refund", "business_rule")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dividendsTotal.WithLabelValues("create")))
}

func TestGlobalRecorders(t *testing.T) {
	m := Init("test_global")

	RecordHTTPRequest("GET", "/api/v1/reports/comprehensive", "200", 100*time.Millisecond)
	RecordCacheHitGlobal("system_config")
	RecordCacheMissGlobal("system_config")
	RecordRefundGlobal("apply", 10)
	ObserveReportGlobal("comprehensive", 5*time.Millisecond)
	RecordRollbackGlobal("course", "conflict")
	RecordDividendGlobal("update")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/reports/comprehensive", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.refundsTotal.WithLabelValues("apply")))
}

func TestMetrics_Middleware(t *testing.T) {
	m := Init("test_middleware")

	router := gin.New()
	router.Use(m.Middleware())

	router.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	t.Run("记录请求指标", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/test", "200")))
	})

	t.Run("跳过/metrics端点", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/metrics", "200")))
	})
}

func TestHandler(t *testing.T) {
	m := Init("test_handler")
	m.RecordRefund("apply", 1)

	router := gin.New()
	router.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "test_handler_refunds_total")
}
