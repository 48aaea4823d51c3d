// Package metrics 提供 Prometheus 指标注册与 /metrics 暴露
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// Metrics 账本服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按路径与状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 交易计数（按方向与结果）
	TradesTotal *prometheus.CounterVec
	// 交易耗时
	TradeDuration *prometheus.HistogramVec
	// 锁冲突计数
	ContentionTotal prometheus.Counter
	// 估值耗时
	ValuationDuration prometheus.Histogram
	// 行情查询计数（按结果）
	QuoteLookupsTotal *prometheus.CounterVec
}

// New 创建并注册指标集合
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"path", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Ledger operations by direction and result",
		}, []string{"direction", "result"}),
		TradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "trade_duration_seconds",
			Help:      "Ledger operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		ContentionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "contention_total",
			Help:      "Operations rejected due to lock contention",
		}),
		ValuationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "valuation_duration_seconds",
			Help:      "Portfolio valuation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		QuoteLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brokerage",
			Subsystem: serviceName,
			Name:      "quote_lookups_total",
			Help:      "Quote source lookups by result",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TradesTotal,
		m.TradeDuration,
		m.ContentionTotal,
		m.ValuationDuration,
		m.QuoteLookupsTotal,
	)

	return m
}

// Handler 返回挂载 /metrics 的 gin 处理函数
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
