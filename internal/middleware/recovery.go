package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/mailsync/internal/pkg"
)

// Recovery recovers from panics, logs them with the stack trace and answers
// with a failed envelope:
//
//	{"status": false, "message": "internal server error", "payload": "unexpected server error"}
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("request_id", GetRequestID(c)),
				slog.String("stack", string(debug.Stack())),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			pkg.Fail(c, http.StatusInternalServerError, "unexpected server error")
			c.Abort()
		}()
		c.Next()
	}
}
