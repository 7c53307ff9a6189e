package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into the `{"error": message, "code": CODE}` body. Internal errors
// carry the underlying message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message := appErr.Message
			if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"message", appErr.Message,
					"internal", appErr.Internal.Error(),
					"path", c.Request.URL.Path,
				)
				if appErr.Code == apperrors.ErrInternalServer.Code {
					message = appErr.Internal.Error()
				}
			}
			c.JSON(appErr.StatusCode, gin.H{"error": message, "code": appErr.Code})
			return
		}

		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
			"error": err.Error(),
			"code":  apperrors.ErrInternalServer.Code,
		})
	}
}

// NotFound answers unmatched routes with a 404 naming the method and URL.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Get().Warnw("route not found",
			"method", c.Request.Method,
			"url", c.Request.URL.String(),
		)
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("נתיב לא נמצא בשרת: %s %s", c.Request.Method, c.Request.URL.String()),
			"code":  apperrors.ErrNotFound.Code,
		})
	}
}
