package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production ready structured logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// WithOperation enriches the logger with operation and request identifiers.
func WithOperation(logger *zap.Logger, operation, requestID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return logger.With(fields...)
}

// GinMiddleware logs one line per HTTP request.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request failed", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request served", fields...)
		}
	}
}
