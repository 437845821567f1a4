package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 envelope carrying the request id,
// so a client report can be matched to the logged stack.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			requestID := RequestIDFrom(c)
			event := log.Error().
				Interface("error", r).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("route", c.FullPath()).
				Str("request_id", requestID).
				Bytes("stack", debug.Stack())
			if user, ok := CurrentUser(c); ok {
				event = event.Str("user_id", user.ID)
			}
			event.Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success":    false,
				"message":    "Something went wrong",
				"error":      "internal_server_error",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
