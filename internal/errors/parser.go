package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"gorm.io/gorm"
)

// ErrorInfo is the client-facing form of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError converts a storage or transport error into a user-safe code and
// message. Driver details never reach the client.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: getDefaultErrorMessage(context)}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}
	if errors.Is(err, repository.ErrConflict) {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "The record was changed concurrently, please retry"}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return parseDuplicateKeyError(pgErr.ConstraintName)
		case "23503":
			return ErrorInfo{Status: http.StatusBadRequest, Code: ResourceNotFound, Message: "A referenced record does not exist"}
		case "23502", "23514":
			return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: "A required value is missing or invalid"}
		}
	}
	if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error())
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable, please try again later",
		}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

// parseDuplicateKeyError names the conflicting resource from the constraint.
func parseDuplicateKeyError(detail string) ErrorInfo {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "email"):
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
	case strings.Contains(detail, "idx_review_vendor_user"):
		return ErrorInfo{Status: http.StatusConflict, Code: ReviewAlreadyExists, Message: "You have already reviewed this vendor"}
	}
	return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func getNotFoundMessage(context string) string {
	switch context {
	case "vendor":
		return "Vendor not found"
	case "review":
		return "Review not found"
	case "user":
		return "User not found"
	case "conversation":
		return "Conversation not found"
	}
	return "The requested resource was not found"
}

func getDefaultErrorMessage(context string) string {
	if context == "" {
		return "Something went wrong, please try again later"
	}
	return "Failed to process " + context + ", please try again later"
}
