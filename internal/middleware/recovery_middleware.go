// internal/middleware/recovery_middleware.go
package middleware

import (
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into the standard error
// envelope. Billing requests must always terminate with a well-formed
// response; a dropped connection mid-charge leaves the caller unable to
// tell whether money moved.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
				response.FromError(c, "internal server error", xerrors.ErrInternal)
			}
		}()
		c.Next()
	}
}
