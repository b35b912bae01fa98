package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
)

// quietPaths are polled by probes and scrapers and only logged on failure.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggingMiddleware tags each request with an id and stores a request-scoped
// logger on the context. One summary line is written per request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		reqLog := logger.WithContext(logger.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  c.ClientIP(),
		})
		c.Set(loggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		summary := logger.Fields{
			"status":      status,
			"route":       c.FullPath(),
			"duration_ms": time.Since(began).Milliseconds(),
			"bytes":       c.Writer.Size(),
		}
		if userID, ok := GetUserID(c); ok {
			summary["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			summary["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			reqLog.Error("Request failed", nil, summary)
		case status >= 400:
			reqLog.Warn("Request rejected", summary)
		case quietPaths[c.Request.URL.Path]:
		default:
			reqLog.Info("Request served", summary)
		}
	}
}

// GetRequestID returns the id assigned by LoggingMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetLoggerFromContext returns the request logger, or the global one outside
// LoggingMiddleware.
func GetLoggerFromContext(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return logger.Get()
}
