package api

import (
	"time"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLogger logs one line per request once it has been served
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.Warn("request served", fields...)
			return
		}
		logger.Debug("request served", fields...)
	}
}

// apiKeyGuard returns the X-API-KEY middleware when a key is configured
func apiKeyGuard(apiKey string) []gin.HandlerFunc {
	if apiKey == "" {
		return nil
	}

	return []gin.HandlerFunc{
		api_key.APIKeyHeaderHandler(func(key string) bool {
			return key == apiKey
		}),
	}
}
