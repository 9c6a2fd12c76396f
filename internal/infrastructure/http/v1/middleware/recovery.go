// Package middleware provides the gin middleware chain: tracing, request
// logging, error rendering, panic recovery, bearer auth and idempotency.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"spareflow/internal/core/apperror"
	appctx "spareflow/internal/core/context"
	"spareflow/pkg/logger"
)

// Recovery turns a panic into INTERNAL_ERROR. It must run inside
// ErrorHandler so the registered error gets rendered.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
				)
				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)).
					WithDetail("request_id", appctx.RequestID(c.Request.Context())))
				c.Abort()
			}
		}()
		c.Next()
	}
}
