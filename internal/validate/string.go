// Package validate provides input validation for user-supplied search text:
// free-text queries and title lookups.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrInvalidEncoding   = errors.New("string is not valid UTF-8")
	ErrEmpty             = errors.New("string is empty")
)

// Length limits, in characters.
const (
	MaxQueryLength = 200
	MaxTitleLength = 300
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MaxLength  int  // Maximum length in characters (0 = no maximum)
	AllowEmpty bool // Whether empty strings are allowed
	TrimSpace  bool // Whether to trim whitespace before validation
}

// String validates s against constraints. It rejects invalid UTF-8 and
// control characters other than tab, even ones trimming would remove. Returns the validated
// (and optionally trimmed) string.
func String(s string, constraints StringConstraints) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidEncoding
	}
	// Checked before trimming so surrounding line breaks are rejected too.
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			return "", fmt.Errorf("%w: control character %U", ErrInvalidCharacters, r)
		}
	}
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Count characters, not bytes
	if length := utf8.RuneCountInString(s); constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	return s, nil
}

// Query validates a search query. Empty queries are allowed.
func Query(q string) (string, error) {
	return String(q, StringConstraints{
		MaxLength:  MaxQueryLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Title validates a title used for exact lookup.
func Title(title string) (string, error) {
	return String(title, StringConstraints{
		MaxLength: MaxTitleLength,
		TrimSpace: true,
	})
}
