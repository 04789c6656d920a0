// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec
	refundsTotal         *prometheus.CounterVec
	refundAmountTotal    prometheus.Counter
	reportBuildDuration  *prometheus.HistogramVec
	transactionsRollback *prometheus.CounterVec
	dividendsTotal       *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	defaultMu      sync.Mutex
)

// Init 初始化指标收集器
//
// 每个收集器使用独立的 Registry，重复初始化不会冲突。
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edu_backoffice"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		refundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Total number of refund operations",
			},
			[]string{"action"},
		),
		refundAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refund_amount_total",
				Help:      "Sum of applied refund amounts",
			},
		),
		reportBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_build_duration_seconds",
				Help:      "Report build duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"report"},
		),
		transactionsRollback: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_rolled_back_total",
				Help:      "Total number of rolled back transactions",
			},
			[]string{"module", "kind"},
		),
		dividendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dividend_records_total",
				Help:      "Total number of dividend record writes",
			},
			[]string{"action"},
		),
	}

	defaultMu.Lock()
	defaultMetrics = m
	defaultMu.Unlock()
	return m
}

// GetMetrics 获取默认指标收集器
func GetMetrics() *Metrics {
	defaultMu.Lock()
	m := defaultMetrics
	defaultMu.Unlock()
	if m == nil {
		return Init("")
	}
	return m
}

// Registry 返回收集器使用的 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点本身
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(cache string) {
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(cache string) {
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordRefund 记录退费操作，action 为 apply 或 cancel
func (m *Metrics) RecordRefund(action string, amount float64) {
	m.refundsTotal.WithLabelValues(action).Inc()
	if action == "apply" && amount > 0 {
		m.refundAmountTotal.Add(amount)
	}
}

// ObserveReport 记录报表生成耗时
func (m *Metrics) ObserveReport(report string, duration time.Duration) {
	m.reportBuildDuration.WithLabelValues(report).Observe(duration.Seconds())
}

// RecordRollback 记录事务回滚
func (m *Metrics) RecordRollback(module, kind string) {
	m.transactionsRollback.WithLabelValues(module, kind).Inc()
}

// RecordDividend 记录分红写操作
func (m *Metrics) RecordDividend(action string) {
	m.dividendsTotal.WithLabelValues(action).Inc()
}

// RecordHTTPRequest 手动记录 HTTP 请求（用于非中间件场景）
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m := GetMetrics()
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheHitGlobal 全局记录缓存命中
func RecordCacheHitGlobal(cache string) {
	GetMetrics().RecordCacheHit(cache)
}

// RecordCacheMissGlobal 全局记录缓存未命中
func RecordCacheMissGlobal(cache string) {
	GetMetrics().RecordCacheMiss(cache)
}

// RecordRefundGlobal 全局记录退费操作
func RecordRefundGlobal(action string, amount float64) {
	GetMetrics().RecordRefund(action, amount)
}

// ObserveReportGlobal 全局记录报表耗时
func ObserveReportGlobal(report string, duration time.Duration) {
	GetMetrics().ObserveReport(report, duration)
}

// RecordRollbackGlobal 全局记录事务回滚
func RecordRollbackGlobal(module, kind string) {
	GetMetrics().RecordRollback(module, kind)
}

// RecordDividendGlobal 全局记录分红写操作
func RecordDividendGlobal(action string) {
	GetMetrics().RecordDividend(action)
}
