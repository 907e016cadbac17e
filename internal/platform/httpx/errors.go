// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrMalformed    = errors.New("malformed request body")
)

// FieldErrorer is implemented by validation errors carrying per-field messages.
type FieldErrorer interface {
	FieldErrors() map[string][]string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var fields FieldErrorer
	switch {
	case errors.As(err, &fields):
		ValidationProblem(w, fields.FieldErrors())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "Not found.")
	case errors.Is(err, ErrMalformed):
		ValidationProblem(w, map[string][]string{"non_field_errors": {err.Error()}})
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(w, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Unauthorized writes a 401 carrying the token challenge header.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", `Token realm="api"`)
	Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	var fields FieldErrorer
	if errors.As(err, &fields) {
		return true
	}
	for _, target := range []error{ErrNotFound, ErrMalformed, ErrDuplicate, ErrValidation, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
