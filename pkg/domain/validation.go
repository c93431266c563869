package domain

// ValidationType selects the grammar an input must satisfy.
type ValidationType string

const (
	ValidateText         ValidationType = "TEXT"
	ValidateNumeric      ValidationType = "NUMERIC"
	ValidatePhone        ValidationType = "PHONE"
	ValidateEmail        ValidationType = "EMAIL"
	ValidateDecimal      ValidationType = "DECIMAL"
	ValidateAlphanumeric ValidationType = "ALPHANUMERIC"
	ValidateName         ValidationType = "NAME"
)

// Valid reports whether t is one of the known validation types.
func (t ValidationType) Valid() bool {
	switch t {
	case ValidateText, ValidateNumeric, ValidatePhone, ValidateEmail,
		ValidateDecimal, ValidateAlphanumeric, ValidateName:
		return true
	}
	return false
}

// ValidationRule constrains the raw text accepted by an INPUT state.
// Nil bounds are unbounded; bounds are inclusive.
type ValidationRule struct {
	Type      ValidationType
	MinLength *int
	MaxLength *int
}
