// Package errorutil defines the error envelope every API failure is rendered
// as: {"error": {"code", "message", "details"}}.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes rendered in the "error.code" field of failed responses.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeDependencyNotReady = "DEPENDENCY_UNAVAILABLE"
)

// DomainError is an error that knows its HTTP status and wire code.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Envelope is the response body for e. Err is never exposed.
func (e *DomainError) Envelope() fiber.Map {
	body := fiber.Map{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return fiber.Map{"error": body}
}

func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, resource+" not found", http.StatusNotFound, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewTokenMissing is the gate rejection when neither channel carries a credential.
func NewTokenMissing() error {
	return NewDomainError(CodeTokenMissing, "access denied, token missing", http.StatusForbidden, nil)
}

// NewTokenInvalid is the gate rejection for a credential that failed verification.
func NewTokenInvalid(reason string) error {
	return NewDomainError(CodeTokenInvalid, "invalid token", http.StatusUnauthorized, map[string]any{"reason": reason})
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "storage not configured",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts any error to a DomainError. Fiber's own errors keep
// their status with an upper-snake code derived from it ("Not Found" becomes
// NOT_FOUND); anything unrecognized is an internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fromStatus(fe.Code, fe.Message)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource").(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func fromStatus(status int, message string) *DomainError {
	text := http.StatusText(status)
	if text == "" {
		return NewDomainError(CodeInternalError, message, status, nil)
	}
	code := strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
	return NewDomainError(code, message, status, nil)
}
