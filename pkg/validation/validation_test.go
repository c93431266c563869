package validation_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/validation"
)

func ptr(n int) *int { return &n }

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		rule  domain.ValidationRule
		valid bool
	}{
		{"Text accepts anything non-empty", "hello there", domain.ValidationRule{Type: domain.ValidateText}, true},
		{"Text rejects blank", "   ", domain.ValidationRule{Type: domain.ValidateText}, false},
		{"Numeric digits", "0042", domain.ValidationRule{Type: domain.ValidateNumeric}, true},
		{"Numeric rejects sign", "-5", domain.ValidationRule{Type: domain.ValidateNumeric}, false},
		{"Numeric rejects decimal", "1.5", domain.ValidationRule{Type: domain.ValidateNumeric}, false},
		{"Decimal integer", "500", domain.ValidationRule{Type: domain.ValidateDecimal}, true},
		{"Decimal fraction", "12.75", domain.ValidationRule{Type: domain.ValidateDecimal}, true},
		{"Decimal trailing dot", "12.", domain.ValidationRule{Type: domain.ValidateDecimal}, false},
		{"Alphanumeric", "AbC123", domain.ValidationRule{Type: domain.ValidateAlphanumeric}, true},
		{"Alphanumeric rejects space", "Ab 12", domain.ValidationRule{Type: domain.ValidateAlphanumeric}, false},
		{"Email", "jane.doe+ussd@example.co", domain.ValidationRule{Type: domain.ValidateEmail}, true},
		{"Email without domain", "jane@", domain.ValidationRule{Type: domain.ValidateEmail}, false},
		{"Name with accents and hyphen", "Zoé Kouassi-Yao", domain.ValidationRule{Type: domain.ValidateName}, true},
		{"Name rejects digits", "R2D2", domain.ValidationRule{Type: domain.ValidateName}, false},
		{"Phone with plus", "+2250701020304", domain.ValidationRule{Type: domain.ValidatePhone}, true},
		{"Phone too short by default", "1234567", domain.ValidationRule{Type: domain.ValidatePhone}, false},
		{"Phone too long by default", "1234567890123456", domain.ValidationRule{Type: domain.ValidatePhone}, false},
		{"Phone min override", "1234", domain.ValidationRule{Type: domain.ValidatePhone, MinLength: ptr(4)}, true},
		{"Phone rejects letters", "07ab0304", domain.ValidationRule{Type: domain.ValidatePhone}, false},
		{"Unknown type", "x", domain.ValidationRule{Type: "COLOR"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validation.Validate(tt.raw, tt.rule)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.raw, got)
				return
			}
			require.Error(t, err)
			var vErr *validation.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.rule.Type, vErr.RuleType)
			assert.NotEmpty(t, vErr.Reason)
		})
	}
}

func TestValidate_LengthBounds(t *testing.T) {
	rule := domain.ValidationRule{Type: domain.ValidateNumeric, MinLength: ptr(3), MaxLength: ptr(6)}

	_, err := validation.Validate("12", rule)
	assert.Error(t, err)
	_, err = validation.Validate("123", rule)
	assert.NoError(t, err, "min is inclusive")
	_, err = validation.Validate("123456", rule)
	assert.NoError(t, err, "max is inclusive")
	_, err = validation.Validate("1234567", rule)
	assert.Error(t, err)
}

func TestValidate_PatternBeforeLength(t *testing.T) {
	rule := domain.ValidationRule{Type: domain.ValidateNumeric, MinLength: ptr(5)}
	_, err := validation.Validate("ab", rule)

	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "digits")
}

func TestValidate_CountsRunes(t *testing.T) {
	rule := domain.ValidationRule{Type: domain.ValidateName, MaxLength: ptr(4)}
	_, err := validation.Validate("Zoé", rule)
	assert.NoError(t, err)
}

func TestValidator_WithPhonePattern(t *testing.T) {
	v := validation.New(validation.WithPhonePattern(regexp.MustCompile(`^0[0-9]+$`)))

	_, err := v.Validate("0701020304", domain.ValidationRule{Type: domain.ValidatePhone})
	assert.NoError(t, err)
	_, err = v.Validate("+2250701020304", domain.ValidationRule{Type: domain.ValidatePhone})
	assert.Error(t, err)
}
