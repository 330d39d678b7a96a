// Package middleware holds the gin middleware shared by the feed routes.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one slog line per request.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"ip", c.ClientIP(),
			"proto", c.Request.Proto,
			"method", c.Request.Method,
			"uri", c.Request.URL.RequestURI(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if err := VerifyError(c); err != nil {
			attrs = append(attrs, "token_error", err)
		}
		log.Info("request", attrs...)
	}
}

// CORS allows any origin; browser clients send the token in a header, not a
// cookie.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		h.Set("Access-Control-Allow-Credentials", "false")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
