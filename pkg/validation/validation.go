// Package validation checks subscriber input against the grammar of an INPUT state.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Default digit bounds for PHONE when the rule leaves them unset.
const (
	DefaultPhoneMinDigits = 8
	DefaultPhoneMaxDigits = 15
)

var (
	numericRe      = regexp.MustCompile(`^[0-9]+$`)
	decimalRe      = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	alphanumericRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	emailRe        = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	nameRe         = regexp.MustCompile(`^[\p{L} \-]+$`)
	defaultPhoneRe = regexp.MustCompile(`^\+?[0-9]+$`)
)

// ValidationError reports input rejected by a rule.
type ValidationError struct {
	RuleType domain.ValidationType
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s input: %s", e.RuleType, e.Reason)
}

// Validator applies validation rules. The zero value is not usable; use New.
type Validator struct {
	phone *regexp.Regexp
}

// Option configures a Validator.
type Option func(*Validator)

// WithPhonePattern replaces the PHONE grammar. Digit bounds still apply.
func WithPhonePattern(re *regexp.Regexp) Option {
	return func(v *Validator) {
		if re != nil {
			v.phone = re
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{phone: defaultPhoneRe}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var std = New()

// Validate checks raw against rule with the default grammar.
func Validate(raw string, rule domain.ValidationRule) (string, error) {
	return std.Validate(raw, rule)
}

// Validate checks raw against rule and returns the accepted value unchanged.
// The pattern is checked first, then the inclusive length bounds.
func (v *Validator) Validate(raw string, rule domain.ValidationRule) (string, error) {
	fail := func(format string, args ...any) (string, error) {
		return "", &ValidationError{RuleType: rule.Type, Reason: fmt.Sprintf(format, args...)}
	}

	length := utf8.RuneCountInString(raw)
	lo, hi := rule.MinLength, rule.MaxLength

	switch rule.Type {
	case domain.ValidateText, "":
		if strings.TrimSpace(raw) == "" {
			return fail("must not be empty")
		}
	case domain.ValidateNumeric:
		if !numericRe.MatchString(raw) {
			return fail("must contain digits only")
		}
	case domain.ValidateDecimal:
		if !decimalRe.MatchString(raw) {
			return fail("must be a decimal number")
		}
	case domain.ValidateAlphanumeric:
		if !alphanumericRe.MatchString(raw) {
			return fail("must contain letters and digits only")
		}
	case domain.ValidateEmail:
		if !emailRe.MatchString(raw) {
			return fail("must be an email address")
		}
	case domain.ValidateName:
		if !nameRe.MatchString(raw) {
			return fail("must contain letters, spaces or hyphens only")
		}
	case domain.ValidatePhone:
		if !v.phone.MatchString(raw) {
			return fail("must be a phone number")
		}
		length = countDigits(raw)
		if lo == nil {
			lo = intPtr(DefaultPhoneMinDigits)
		}
		if hi == nil {
			hi = intPtr(DefaultPhoneMaxDigits)
		}
	default:
		return fail("unknown validation type")
	}

	if lo != nil && length < *lo {
		return fail("must be at least %d characters", *lo)
	}
	if hi != nil && length > *hi {
		return fail("must be at most %d characters", *hi)
	}
	return raw, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func intPtr(n int) *int { return &n }
