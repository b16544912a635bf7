package apierr

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeNoPublicPatterns   = "NO_PUBLIC_PATTERNS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = New(fiber.StatusNotFound, CodeNotFound, "resource not found with given parameters")

	// ErrPatternNotFound is returned when a pattern does not exist or is not visible to the caller.
	ErrPatternNotFound = New(fiber.StatusNotFound, CodeNotFound, "pattern not found")

	// ErrInvalidReq is returned when a request is invalid.
	ErrInvalidReq = New(fiber.StatusBadRequest, CodeInvalidRequest, "invalid request: some or all request parameters are invalid")

	// ErrValidationFailed is returned when a submitted pattern breaks a pattern rule.
	// The message is always replaced with the specific reason.
	ErrValidationFailed = New(fiber.StatusBadRequest, CodeValidationFailed, "pattern validation failed")

	// ErrAccessDenied is returned when the caller tries to delete a pattern owned by someone else.
	ErrAccessDenied = New(fiber.StatusForbidden, CodeAccessDenied, "you are not allowed to modify this pattern")

	// ErrNoPublicPatterns is returned when a random pick finds no public pattern.
	ErrNoPublicPatterns = New(fiber.StatusNotFound, CodeNoPublicPatterns, "No patterns found in the database")

	// ErrUnauthorized is returned when the request carries no valid identity.
	ErrUnauthorized = New(fiber.StatusUnauthorized, CodeUnauthorized, "Unauthorized access")

	// ErrServiceUnavailable is returned by the health check when a dependency is down.
	ErrServiceUnavailable = New(fiber.StatusServiceUnavailable, CodeServiceUnavailable, "service unavailable")

	// ErrInternalError is returned when an internal error occurs.
	ErrInternalError = New(fiber.StatusInternalServerError, CodeInternalError, "internal server error occurred")
)

type Extras map[string]interface{}

type Error struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Extras     *Extras
}

func New(statusCode int, errorCode string, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

func (e Error) Msg(format string, parts ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, parts...)
	return &e
}

func (e Error) WithExtras(extras Extras) *Error {
	e.Extras = &extras
	return &e
}

func NewInvalidViolations(violations interface{}) *Error {
	// copy ErrInvalidRequest as e
	e := *ErrInvalidReq
	e.Extras = &Extras{
		"violations": violations,
	}
	return &e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Is matches on status and code so that copies made by Msg and WithExtras
// still compare equal to the sentinel they came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.ErrorCode == t.ErrorCode
}
