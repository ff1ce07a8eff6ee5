package middleware

import (
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of handled HTTP requests.",
		},
		[]string{"route", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)
)

// RegisterMetrics registers the HTTP collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(requestsTotal, requestDuration)
}

// RequestMetrics counts requests by matched route pattern. The router must
// have SaveMatchedRoutePath enabled; unmatched paths share one label.
func RequestMetrics(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		route := "unmatched"
		if v, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && v != "" {
			route = v
		}
		method := string(ctx.Method())
		requestsTotal.WithLabelValues(route, method, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
