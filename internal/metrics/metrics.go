package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nightshade_ws_connections",
		Help: "Current number of active websocket connections",
	})
	MessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nightshade_messages_total",
		Help: "Total number of chat messages appended",
	})
	MessagesExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nightshade_messages_expired_total",
		Help: "Total number of messages removed by the expiry sweeper",
	})
	BotResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightshade_bot_responses_total",
		Help: "Total number of bot responses appended",
	}, []string{"bot"})
	GeneratorFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightshade_generator_fallbacks_total",
		Help: "Total number of bot responses served from the fallback set",
	}, []string{"bot"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		MessagesTotal,
		MessagesExpiredTotal,
		BotResponsesTotal,
		GeneratorFallbacksTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware 统计基础请求指标，供 Prometheus 拉取。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
