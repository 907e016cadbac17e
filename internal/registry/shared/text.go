package shared

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanText NFC-normalises s and trims surrounding whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// CleanOptional is CleanText for nullable fields; blank input becomes nil.
func CleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanText(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
