package catalog

import (
	"errors"
	"strconv"
	"strings"
)

// ErrRefRequired is returned when no movie reference is given.
var ErrRefRequired = errors.New("movie reference required")

// Ref identifies a movie either by ID or by display position.
type Ref struct {
	ID         string
	Position   int
	ByPosition bool
}

// ParseRef parses a movie reference.
// Supported formats:
//   - "3" or "#3": the movie at position 3
//   - anything else: a movie ID
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, ErrRefRequired
	}

	digits := strings.TrimPrefix(s, "#")
	if isAllDigits(digits) {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			return Ref{}, &ValidationError{Field: "position", Reason: "out of range: " + digits}
		}
		return Ref{Position: n, ByPosition: true}, nil
	}
	if digits != s {
		return Ref{}, &ValidationError{Field: "position", Reason: "not a number: " + digits}
	}
	return Ref{ID: s}, nil
}

// isAllDigits returns true if s is non-empty and contains only ASCII digits.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
