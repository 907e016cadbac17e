// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// NoContent sends an empty response with the given status code.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// ValidationProblem sends a 400 problem with a per-field message map.
func ValidationProblem(w http.ResponseWriter, fields map[string][]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Errors: fields,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
// An empty body leaves target untouched; other decoding failures are reported as ErrMalformed.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &DecodeError{Field: typeErr.Field, Msg: "Incorrect type. Expected " + typeErr.Type.String() + ", received " + typeErr.Value + "."}
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeError reports a JSON value of the wrong type for a known field.
type DecodeError struct {
	Field string
	Msg   string
}

func (e *DecodeError) Error() string { return e.Field + ": " + e.Msg }

// FieldErrors exposes the failing field.
func (e *DecodeError) FieldErrors() map[string][]string {
	return map[string][]string{e.Field: {e.Msg}}
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *DecodeError) Unwrap() error { return ErrMalformed }
