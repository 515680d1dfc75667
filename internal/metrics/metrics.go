package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodiag_http_requests_total",
		Help: "HTTP requests processed, by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autodiag_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	upstreamResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodiag_ai_upstream_results_total",
		Help: "AI completion calls, by outcome (success, rate_limited, quota_exhausted, upstream_error, network_error).",
	}, []string{"outcome"})

	analysisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autodiag_ai_analysis_fallbacks_total",
		Help: "Model replies that failed to parse and were persisted as a degraded fallback.",
	})
)

// RequestMiddleware records request counts and latency per route.
func RequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveUpstream records the outcome of one AI completion call.
func ObserveUpstream(outcome string) {
	upstreamResults.WithLabelValues(outcome).Inc()
}

// ObserveAnalysisFallback records a degraded analysis fallback.
func ObserveAnalysisFallback() {
	analysisFallbacks.Inc()
}
