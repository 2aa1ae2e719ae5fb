package httppresentation

import (
	"time"

	"github.com/shopmesh/shopmesh/internal/pkg/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLogger injects the base logger into the request context and writes a
// single access log per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logging.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		log.Info("http_access",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}
