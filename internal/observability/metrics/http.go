package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latencies scraped from /metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors with reg. Collectors already
// registered by a previous instance are reused.
func NewHTTPMetrics(reg prometheus.Registerer, cfg Config) *HTTPMetrics {
	constLabels := prometheus.Labels{}
	if service := strings.TrimSpace(cfg.ServiceName); service != "" {
		constLabels["service"] = service
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relay_http_requests_total",
		Help:        "Counts HTTP requests by method, route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "relay_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	if reg != nil {
		requests = registerOrReuse(reg, requests).(*prometheus.CounterVec)
		duration = registerOrReuse(reg, duration).(*prometheus.HistogramVec)
	}

	return &HTTPMetrics{requests: requests, duration: duration}
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector
		}
	}
	return c
}

// GinMiddleware observes every request once the handler chain has finished.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
