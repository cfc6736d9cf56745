package middleware

import (
	"time"

	"floorview/pkg/logger"
	"floorview/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const RequestIDHeader = "X-Request-ID"

// requestID reuses a caller-supplied id so a floorview CLI call and the
// linesim log line can be matched up.
func requestID(c *gin.Context) string {
	if id := c.GetHeader(RequestIDHeader); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

// TracingMiddleware continues any incoming trace context, opens a server span
// per request, echoes X-Request-ID and logs one line per request through cl.
func TracingMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestID(c)
		c.Header(RequestIDHeader, id)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracing.TraceHTTPRequest(ctx, c.Request.Method, route)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.request_id", id),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		ctx = logger.WithRequestID(ctx, id)
		c.Request = c.Request.WithContext(ctx)

		started := time.Now()
		c.Next()
		elapsed := time.Since(started)

		status := c.Writer.Status()
		span.SetAttributes(
			tracing.StatusCodeKey.Int(status),
			attribute.Int("http.response_size", c.Writer.Size()),
		)
		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.Last().Error())
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
		default:
			span.SetStatus(codes.Ok, "")
		}

		if cl != nil {
			cl.LogRequest(ctx, c.Request.Method, c.Request.URL.Path, status, elapsed.Milliseconds())
		}
	}
}
