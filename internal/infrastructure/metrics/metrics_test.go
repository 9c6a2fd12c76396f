package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain/request"
	"spareflow/internal/infrastructure/storage/postgres"
)

func TestObserveTransition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTransition(request.DirectionReturn, request.TransitionVerify, nil, 20*time.Millisecond)
	m.ObserveTransition(request.DirectionReturn, request.TransitionVerify, apperror.NewReadOnly("return_request", "r", "verified"), time.Millisecond)
	m.ObserveTransition(request.DirectionReturn, request.TransitionVerify, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("return", "verify", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("return", "verify", "state_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("return", "verify", "internal")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/items/:id", "GET", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "spareflow_http_requests_total"))
}

type staticStats postgres.PoolStats

func (s staticStats) Stats() postgres.PoolStats { return postgres.PoolStats(s) }

func TestPoolCollector(t *testing.T) {
	c := NewPoolCollector(staticStats{TotalConns: 4, IdleConns: 3, AcquiredConns: 1, MaxConns: 20})
	assert.Equal(t, 4, testutil.CollectAndCount(c))
}
