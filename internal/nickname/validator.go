// Package nickname validates user-chosen handles. Validation is pure: no
// I/O, no clock, same verdict for the same input every time.
package nickname

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFormat rejects candidates that break the shape rule.
	ErrInvalidFormat = errors.New("invalid nickname format")
	// ErrReserved rejects candidates from the reserved-word set.
	ErrReserved = errors.New("nickname is reserved")
)

// Rules bound the accepted nickname shape. Zero value is not usable; build
// one from config or use DefaultRules.
type Rules struct {
	MinLen int
	MaxLen int
}

// DefaultRules returns the standard 3-20 character bounds.
func DefaultRules() Rules {
	return Rules{MinLen: 3, MaxLen: 20}
}

// Normalize returns the lowercase form of a nickname, which is the form
// uniqueness is enforced on.
func Normalize(candidate string) string {
	return strings.ToLower(candidate)
}

// ValidateFormat checks the shape rule only: length bounds, the
// [A-Za-z0-9_-] alphabet, alphanumeric first and last characters, and no
// consecutive special characters. Lookups use this; the reserved-word set
// only applies when claiming a nickname.
func (r Rules) ValidateFormat(candidate string) error {
	if len(candidate) < r.MinLen || len(candidate) > r.MaxLen {
		return fmt.Errorf("%w: length must be between %d and %d characters", ErrInvalidFormat, r.MinLen, r.MaxLen)
	}

	for i := 0; i < len(candidate); i++ {
		if !isAllowed(candidate[i]) {
			return fmt.Errorf("%w: only letters, digits, '-' and '_' are allowed", ErrInvalidFormat)
		}
	}

	if !isAlphanumeric(candidate[0]) || !isAlphanumeric(candidate[len(candidate)-1]) {
		return fmt.Errorf("%w: must start and end with a letter or digit", ErrInvalidFormat)
	}

	for i := 1; i < len(candidate); i++ {
		if !isAlphanumeric(candidate[i]) && !isAlphanumeric(candidate[i-1]) {
			return fmt.Errorf("%w: consecutive '-' or '_' are not allowed", ErrInvalidFormat)
		}
	}

	return nil
}

// Validate checks the shape rule and the reserved-word set. Used when a
// nickname is being claimed.
func (r Rules) Validate(candidate string) error {
	if err := r.ValidateFormat(candidate); err != nil {
		return err
	}
	if IsReserved(candidate) {
		return fmt.Errorf("%w: %s", ErrReserved, Normalize(candidate))
	}
	return nil
}

// IsReserved reports whether the candidate (case-insensitively) matches the
// reserved-word set.
func IsReserved(candidate string) bool {
	_, ok := reservedWords[Normalize(candidate)]
	return ok
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isAllowed(c byte) bool {
	return isAlphanumeric(c) || c == '-' || c == '_'
}
