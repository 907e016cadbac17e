package shared

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	internalShared "github.com/corpbank/corpbank/internal/shared"
)

// Field messages shared by every resource.
const (
	MsgRequired     = "This field is required."
	MsgInvalidPhone = "Enter a valid phone number."
	MsgInvalidNum   = "A valid number is required."
)

// ValidationError carries per-field messages. It matches httpx.ErrValidation.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds an error with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add appends msg to field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// Merge copies every message of other into v.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			v.Add(field, msg)
		}
	}
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns v as an error, or nil when no field failed.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors exposes the message map to httpx.
func (v *ValidationError) FieldErrors() map[string][]string {
	return v.Fields
}

// Unwrap lets errors.Is match httpx.ErrValidation.
func (v *ValidationError) Unwrap() error {
	return httpx.ErrValidation
}

// MissingReference builds the error for a foreign key pointing at nothing.
func MissingReference(field string, id int64) *ValidationError {
	return NewValidationError(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
}

// Fail writes err as a problem response. Unexpected errors are logged with op.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	if !httpx.IsClientError(err) {
		internalShared.LoggerFrom(r.Context(), logger).Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
