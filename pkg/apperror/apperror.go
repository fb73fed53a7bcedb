package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrPermission    = errors.New("permission denied")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal server error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
	ErrGeneration    = errors.New("generation error")
	ErrTransport     = errors.New("transport error")
)

const GenerationRetryMessage = "The AI engine returned an unusable answer. Please try again."

type AppError struct {
	BaseError error
	Message   string
	Details   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

func NewConflict(resource, field, value string) *AppError {
	msg := fmt.Sprintf("%s conflict", resource)
	details := fmt.Sprintf("%s with %s '%s' already exists", resource, field, value)
	return NewAppError(ErrConflict, msg, details, nil)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

func NewUnauthorized(details string, err error) *AppError {
	return NewAppError(ErrUnauthorized, "Invalid credentials", details, err)
}

func NewPermissionDenied(details string) *AppError {
	return NewAppError(ErrPermission, "Permission denied", details, nil)
}

// NewConfiguration reports a missing credential. It is never retried.
func NewConfiguration(details string) *AppError {
	return NewAppError(ErrConfiguration, "Configuration Error: "+details, details, nil)
}

func NewGeneration(details string, err error) *AppError {
	return NewAppError(ErrGeneration, GenerationRetryMessage, details, err)
}

// NewTransport keeps the collaborator's own wording, minus provider prefixes.
func NewTransport(details string, err error) *AppError {
	msg := "Connection to a backend service failed."
	if err != nil {
		if trimmed := TrimBackendPrefix(err.Error()); trimmed != "" {
			msg = trimmed
		}
	}
	return NewAppError(ErrTransport, msg, details, err)
}

var backendPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^googleapi: Error \d+:\s*`),
	regexp.MustCompile(`^rpc error: code = \w+ desc = `),
	regexp.MustCompile(`^error, status code: \d+, (status: [^,]+, )?message: `),
	regexp.MustCompile(`^ERROR: `),
}

// TrimBackendPrefix strips wrapping added by client libraries so the text
// can be shown to a user as-is.
func TrimBackendPrefix(msg string) string {
	msg = strings.TrimSpace(msg)
	for changed := true; changed; {
		changed = false
		for _, re := range backendPrefixes {
			if loc := re.FindStringIndex(msg); loc != nil {
				msg = strings.TrimSpace(msg[loc[1]:])
				changed = true
			}
		}
	}
	return msg
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrGeneration), errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	return gin.H{
		"error":   e.BaseError.Error(),
		"message": e.Message,
	}
}
