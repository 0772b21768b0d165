// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers every endpoint writes through. Errors
// always take the ErrorResponse envelope with a stable code from errors.go;
// successes are plain JSON bodies. fail() owns the logging of 5xx responses so
// individual handlers never log errors themselves.
//
// A failed lookup and a resolved step look like:
//
//	HTTP/1.1 404 Not Found
//	{"request_id":"123e4567-...","code":"not_found","message":"no such workout"}
//
//	HTTP/1.1 200 OK
//	{"next_step":"bodyfat"}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/go-fitness-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint. RequestID
// echoes the X-Request-ID header so app-side error reports can be matched to
// server logs; Code is one of the errors.go constants.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with the error envelope. Responses >= 500 are
// additionally logged through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, for use by router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
