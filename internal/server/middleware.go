package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

const bearerPrefix = "bearer "

// requirePrincipal resolves the bearer token and stores the principal in the
// request context. Requests without one never reach a handler.
func requirePrincipal(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": errors.CodeUnauthenticated})
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": errors.CodeUnauthenticated})
			return
		}

		principal, err := tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			abortWithError(c, err, nil)
			return
		}

		c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Debug("HTTP request", fields...)
	}
}

// abortWithError maps an application error to its status and code. Causes of
// server-side failures are logged, never returned.
func abortWithError(c *gin.Context, err error, logger *zap.Logger) {
	status := errors.StatusCode(err)
	code := errors.CodeOf(err)

	message := "internal server error"
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if code == "" {
		code = "INTERNAL_ERROR"
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
