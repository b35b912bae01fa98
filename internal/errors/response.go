package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

var defaultMessages = map[int]string{
	http.StatusUnauthorized:        "Authentication required",
	http.StatusForbidden:           "You do not have permission to perform this action",
	http.StatusInternalServerError: "Something went wrong, please try again later",
}

// RespondWithError writes code and message with the request id set by the
// logging middleware, if any.
func RespondWithError(c *gin.Context, status int, code, message string) {
	if message == "" {
		message = defaultMessages[status]
	}
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}

func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusBadRequest, code, message)
}

func InternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}
