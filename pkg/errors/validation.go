package errors

import (
	"strings"
	"unicode"
)

// ValidateToolchainName validates a toolchain name for safety and correctness.
// Toolchain names are used in cache keys and filesystem paths, so the
// validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 64 characters
func ValidateToolchainName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidOption, "toolchain name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidOption, "toolchain name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidOption, "toolchain name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidOption, "toolchain name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateToleranceBudget validates the numeric tolerance budget.
// The budget is the maximum absolute difference between paired numeric
// values for them to be treated as equivalent.
func ValidateToleranceBudget(budget float64) error {
	if budget < 0 {
		return New(ErrCodeInvalidOption, "tolerance budget must be non-negative, got %g", budget)
	}
	if budget != budget { // NaN
		return New(ErrCodeInvalidOption, "tolerance budget must be a valid number")
	}
	return nil
}
