package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spareflow/internal/core/apperror"
	appctx "spareflow/internal/core/context"
	"spareflow/pkg/logger"
)

// ErrorHandler renders the last error registered on the context as
// {code, message, details}. Handlers never write error bodies themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RenderError(c, c.Errors.Last().Err)
	}
}

// RenderError writes the error response for err. Causes of persistence and
// internal errors are logged and never sent to the client.
func RenderError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		logger.Error(ctx, "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": gin.H{"request_id": appctx.RequestID(c.Request.Context())},
		})
		return
	}

	if appErr.Err != nil {
		logger.Error(ctx, "request error",
			"code", appErr.Code,
			"cause", appErr.Err,
		)
	}

	c.JSON(appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})
}
