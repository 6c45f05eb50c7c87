// Package response writes the JSON bodies shared by all HTTP handlers.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in ErrorBody.Code.
const (
	CodeBadRequest     = "bad_request"
	CodeUnauthorized   = "unauthorized"
	CodeSessionExpired = "session_expired"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeInternal       = "internal_error"
	CodeUnavailable    = "unavailable"
)

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error aborts the request with status and an ErrorBody.
func Error(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message, Code: code})
}

// BadRequest aborts with 400.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized aborts with 401.
func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
}

// Internal aborts with a generic 500; details stay in the server log.
func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
