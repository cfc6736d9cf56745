package middleware

import (
	"fmt"
	"net/http"

	apperrors "floorview/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError renders err as the JSON body the floorview CLI decodes:
// {"error": CODE, "message": ..., "request_id": ..., "details": {...}}.
func writeError(c *gin.Context, err *apperrors.AppError) {
	body := gin.H{
		"error":   string(err.Code),
		"message": err.Message,
	}
	if id := c.Writer.Header().Get(RequestIDHeader); id != "" {
		body["request_id"] = id
	}
	if len(err.Context) > 0 {
		body["details"] = err.Context
	}
	c.AbortWithStatusJSON(err.HTTPStatus, body)
}

// asAppError hides the text of unexpected errors from clients.
func asAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	return apperrors.WrapError(err, apperrors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
}

// ErrorHandlerMiddleware turns the last error a handler attached with
// c.Error into a JSON response. Handlers that already wrote a body are left
// untouched.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}
		appErr := asAppError(last.Err)

		fields := []interface{}{
			"code", appErr.Code,
			"status", appErr.HTTPStatus,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if appErr.Cause != nil {
			fields = append(fields, "error", appErr.Cause)
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw(appErr.Message, fields...)
		} else {
			logger.Warnw(appErr.Message, fields...)
		}

		if c.Writer.Written() {
			return
		}
		writeError(c, appErr)
	}
}

// RecoveryMiddleware converts a handler panic into an INTERNAL_ERROR response.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Errorw("handler panicked",
				"panic", fmt.Sprint(r),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			writeError(c, apperrors.NewInternalError("Internal server error"))
		}()
		c.Next()
	}
}
