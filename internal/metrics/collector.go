// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/BaSui01/fedbroker/broker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现 broker.Observer
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Broker 指标
	envelopesQueued    *prometheus.CounterVec
	envelopesDelivered *prometheus.CounterVec
	receiveTimeouts    *prometheus.CounterVec
	joinsRejected      prometheus.Counter
	rosterSize         prometheus.Gauge
	queueDepth         *prometheus.GaugeVec
	resets             prometheus.Counter

	logger *zap.Logger
}

var _ broker.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Broker 指标
	c.envelopesQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "envelopes_queued_total",
			Help:      "Envelopes pushed into a mailbox",
		},
		[]string{"role", "kind"},
	)

	c.envelopesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "envelopes_delivered_total",
			Help:      "Envelopes popped from a mailbox",
		},
		[]string{"role", "kind"},
	)

	c.receiveTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "receive_timeouts_total",
			Help:      "Receives that found an empty mailbox until their timeout",
		},
		[]string{"role"},
	)

	c.joinsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "joins_rejected_total",
			Help:      "Join requests rejected as duplicates",
		},
	)

	c.rosterSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "roster_size",
			Help:      "Confirmed participants of the active task",
		},
	)

	c.queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "queue_depth",
			Help:      "Envelopes waiting in mailboxes",
		},
		[]string{"role"},
	)

	c.resets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "resets_total",
			Help:      "Full state resets",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 📮 Broker 指标记录（broker.Observer）
// =============================================================================

// EnvelopeQueued 记录入队
func (c *Collector) EnvelopeQueued(role broker.Role, kind broker.Kind) {
	c.envelopesQueued.WithLabelValues(string(role), string(kind)).Inc()
}

// EnvelopeDelivered 记录出队
func (c *Collector) EnvelopeDelivered(role broker.Role, kind broker.Kind) {
	c.envelopesDelivered.WithLabelValues(string(role), string(kind)).Inc()
}

// ReceiveTimedOut 记录接收超时
func (c *Collector) ReceiveTimedOut(role broker.Role) {
	c.receiveTimeouts.WithLabelValues(string(role)).Inc()
}

// JoinRejected 记录重复加入
func (c *Collector) JoinRejected() {
	c.joinsRejected.Inc()
}

// RosterSize 更新名册大小
func (c *Collector) RosterSize(n int) {
	c.rosterSize.Set(float64(n))
}

// QueueDepth 更新邮箱深度
func (c *Collector) QueueDepth(role broker.Role, depth int) {
	c.queueDepth.WithLabelValues(string(role)).Set(float64(depth))
}

// StoreReset 记录重置
func (c *Collector) StoreReset() {
	c.resets.Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
