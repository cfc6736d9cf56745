package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "floorview/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newErrorRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()
	router := gin.New()
	router.Use(RecoveryMiddleware(logger), ErrorHandlerMiddleware(logger))
	return router
}

func TestErrorHandlerMiddleware_AppError(t *testing.T) {
	router := newErrorRouter()
	router.POST("/inspect", func(c *gin.Context) {
		c.Error(apperrors.NewNoActivePolicyError())
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/inspect", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NO_ACTIVE_POLICY", body["error"])
	assert.NotContains(t, body, "details")
}

func TestErrorHandlerMiddleware_IncludesRequestIDAndDetails(t *testing.T) {
	router := newErrorRouter()
	router.GET("/policy/:id", func(c *gin.Context) {
		c.Header(RequestIDHeader, "req-42")
		c.Error(apperrors.NewNotFoundError("policy").WithContext("policy_id", c.Param("id")))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/policy/p-9", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body["request_id"])
	assert.Equal(t, map[string]interface{}{"policy_id": "p-9"}, body["details"])
}

func TestErrorHandlerMiddleware_KeepsWrittenResponse(t *testing.T) {
	router := newErrorRouter()
	router.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusAccepted, "queued")
		c.Error(errors.New("late failure"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/partial", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "queued", w.Body.String())
}

func TestErrorHandlerMiddleware_PlainError(t *testing.T) {
	router := newErrorRouter()
	router.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("disk on fire"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newErrorRouter()
	router.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
