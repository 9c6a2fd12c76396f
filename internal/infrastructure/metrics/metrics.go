// Package metrics exposes Prometheus collectors for request transitions,
// HTTP traffic and the database pool.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain/request"
)

const namespace = "spareflow"

// Metrics holds every collector. One instance per registry.
type Metrics struct {
	registry prometheus.Gatherer

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

var _ request.Observer = (*Metrics)(nil)

// New registers the collectors on reg. Passing prometheus.NewRegistry()
// keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Request transitions by flow, transition and result.",
		}, []string{"flow", "transition", "result"}),
		transitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Latency of request transitions including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow", "transition"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveTransition implements request.Observer. The result label is "ok"
// or the error kind.
func (m *Metrics) ObserveTransition(d request.Direction, t request.Transition, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = string(apperror.KindOf(err))
	}
	m.transitions.WithLabelValues(string(d), string(t), result).Inc()
	m.transitionDuration.WithLabelValues(string(d), string(t)).Observe(elapsed.Seconds())
}

// Middleware records one sample per HTTP request, labelled by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
