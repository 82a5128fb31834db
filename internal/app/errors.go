package app

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeForbidden           = "FORBIDDEN"
	CodeForbiddenTransition = "FORBIDDEN_TRANSITION"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeStatusConflict      = "STATUS_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
)

// DomainError is the caller-facing error of Service. Status is the HTTP
// status a transport layer should answer with.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// StatusOf maps err to an HTTP status; anything that is not a DomainError
// is a 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status
	}
	return http.StatusInternalServerError
}
