package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects field-scoped validation errors
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("VALIDATION_ERROR", v.ErrorMessage(), ErrValidation)
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Fixed-format identifier patterns. These rules match what the client forms
// enforce; values arrive already uppercased or they fail here.
var (
	panRx    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)
	ifscRx   = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	aadharRx = regexp.MustCompile(`^[0-9]{12}$`)
	gstRx    = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)
	udyamRx  = regexp.MustCompile(`^UDYAM-[A-Z]{2}-[0-9]{2}-[0-9]{7}$`)
	emailRx  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRx = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

func MinLength(fieldName string, value interface{}, min int) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return nil
	}

	if utf8.RuneCountInString(str) < min {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be at least %d characters", min),
		}
	}
	return nil
}

func MaxLength(fieldName string, value interface{}, max int) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return nil
	}

	if utf8.RuneCountInString(str) > max {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be at most %d characters", max),
		}
	}
	return nil
}

// PAN validates the income-tax permanent account number format.
func PAN(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, panRx, "must match PAN format (e.g. ABCDE1234F)")
}

// IFSC validates the bank-branch routing code format.
func IFSC(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, ifscRx, "must match IFSC format (e.g. SBIN0001234)")
}

// Aadhar validates the 12-digit identity number format.
func Aadhar(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, aadharRx, "must be a 12-digit Aadhar number")
}

// GST validates the goods-and-services tax registration format.
func GST(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, gstRx, "must match GSTIN format")
}

// Udyam validates the micro-enterprise registration number format.
func Udyam(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, udyamRx, "must match Udyam format (UDYAM-XX-00-0000000)")
}

// Email validates a minimal address shape
func Email(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, emailRx, "must be a valid email address")
}

// Mobile validates a 10-digit Indian mobile number
func Mobile(fieldName string, value interface{}) *ValidationError {
	return matchRule(fieldName, value, mobileRx, "must be a 10-digit mobile number")
}

func matchRule(fieldName string, value interface{}, rx *regexp.Regexp, msg string) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if !rx.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: msg}
	}
	return nil
}

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	}
	return "", false
}
