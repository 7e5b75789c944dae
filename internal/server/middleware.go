package server

import (
	"net/http"
	"time"

	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID tags every request with an id, reusing the caller's when present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// logRequests writes one line per request through the shared logger
func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", c.GetString(requestIDKey),
		}
		switch {
		case status >= http.StatusInternalServerError:
			util.Warn("Request failed", fields...)
		case c.Request.URL.Path == "/health":
			util.Debug("Request", fields...)
		default:
			util.Info("Request", fields...)
		}
	}
}

// recoverJSON turns a handler panic into a 500 with the usual error body
func recoverJSON() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, p any) {
		util.Error("Handler panic", "panic", p, "request_id", c.GetString(requestIDKey))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal error",
			"request_id": c.GetString(requestIDKey),
		})
	})
}
