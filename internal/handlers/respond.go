package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"launchpad/api/internal/service"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, message string, meta, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Meta: meta, Data: data})
}

// NoRoute answers unmatched paths with the standard envelope.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, envelope{Message: "Route not found", Error: "not_found"})
}

func NoMethod(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, envelope{Message: "Method not allowed", Error: "method_not_allowed"})
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
	{service.ErrExpired, http.StatusGone, "expired"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// writeError maps classified service errors to their status. Anything else
// is logged and reported as a bare 500 so internals never leak.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.status, envelope{Success: false, Message: err.Error(), Error: e.code})
			return
		}
	}

	log.Error().Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Something went wrong",
		Error:   "internal_server_error",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: err.Error(), Error: "bad_request"})
}
