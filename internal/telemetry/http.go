package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// HTTPServerMiddleware tags every request with an ID and logs its start and
// finish.
func HTTPServerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)

		ctx := c.Request.Context()
		start := time.Now()
		slog.InfoContext(ctx, "http: started call",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
		)

		c.Next()

		slog.InfoContext(ctx, "http: finished call",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
