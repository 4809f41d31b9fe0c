package logger

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Webhook correlation headers. The access logger reads them directly so
// every log line of a delivery carries the platform's identifiers, even
// for requests that fail before a handler runs.
const (
	headerDeliveryID = "X-Shopify-Webhook-Id"
	headerTopic      = "X-Shopify-Topic"
)

// GinMiddleware returns a gin middleware that writes one access log line
// per request. The request-scoped logger it leaves in the gin context is
// pre-enriched with the request id and, for webhook deliveries, the
// delivery id and topic; the request id is also threaded into the
// request context for query-level correlation.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Set by the RequestID middleware
		requestID, _ := c.Get("request_id")
		requestIDStr, _ := requestID.(string)

		reqLogger := logger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		ctx := c.Request.Context()
		if deliveryID := c.GetHeader(headerDeliveryID); deliveryID != "" {
			ctx = context.WithValue(ctx, DeliveryIDKey, deliveryID)
			reqLogger = reqLogger.With(zap.String("delivery_id", deliveryID))
		}
		if topic := c.GetHeader(headerTopic); topic != "" {
			reqLogger = reqLogger.With(zap.String("topic", topic))
		}

		ctx, reqLogger = WithRequestID(ctx, reqLogger, requestIDStr)
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			reqLogger.Error("http request", fields...)
		case status >= 400:
			reqLogger.Warn("http request", fields...)
		default:
			reqLogger.Info("http request", fields...)
		}
	}
}

// Recovery returns a gin middleware that recovers from panics and logs
// them. A panicked delivery is answered 500, so the platform will
// redeliver it.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get("request_id")
				requestIDStr, _ := requestID.(string)

				logger.Error("panic recovered",
					zap.String("request_id", requestIDStr),
					zap.String("delivery_id", c.GetHeader(headerDeliveryID)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)

				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}

// GetGinLogger retrieves the request-scoped logger from the gin context
func GetGinLogger(c *gin.Context) *zap.Logger {
	if logger, exists := c.Get("logger"); exists {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
