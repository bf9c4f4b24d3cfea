package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateDims checks that an embedding dimension is supported.
// Only 1, 2 and 3 dimensional embeddings have a grid implementation.
func ValidateDims(d int) error {
	if d < 1 || d > 3 {
		return New(ErrCodeConfiguration, "embedding dimension must be 1, 2 or 3, got %d", d)
	}
	return nil
}

// ValidateFinite reports the first NaN or infinite entry of vals.
// The returned error names the flat index so callers can map it back
// to a (row, column) pair.
func ValidateFinite(name string, vals []float64) error {
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidInput, "%s contains non-finite value %v at index %d", name, v, i)
		}
	}
	return nil
}

// ValidatePositive checks that a named scalar option is strictly positive.
func ValidatePositive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return New(ErrCodeConfiguration, "%s must be a positive finite number, got %v", name, v)
	}
	return nil
}

// ValidatePath validates a user-supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - No leading or trailing whitespace
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.TrimSpace(path) != path {
		return New(ErrCodeInvalidPath, "path has leading or trailing whitespace: %q", path)
	}

	return nil
}
