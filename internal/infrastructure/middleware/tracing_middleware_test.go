package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"floorview/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(TracingMiddleware(logger.NewContextLogger(zap.New(core))))
	router.GET("/api/v1/line/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, logs
}

func TestTracingMiddleware_GeneratesRequestID(t *testing.T) {
	router, logs := newTracedRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/line/status", nil)
	router.ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status_code"])
}

func TestTracingMiddleware_EchoesCallerRequestID(t *testing.T) {
	router, _ := newTracedRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/line/status", nil)
	req.Header.Set(RequestIDHeader, "cli-7")
	router.ServeHTTP(w, req)
	assert.Equal(t, "cli-7", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/line/status", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	router.ServeHTTP(w, req)
	assert.NotEqual(t, strings.Repeat("x", 200), w.Header().Get(RequestIDHeader))
}
