package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	UsernameMinLength = 3
	UsernameMaxLength = 64
	PasswordMinLength = 6
	PasswordMaxBytes  = 72
	DescriptionMax    = 500
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]*FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		missing := false
		switch v := value.(type) {
		case string:
			missing = strings.TrimSpace(v) == ""
		case *string:
			missing = v == nil || strings.TrimSpace(*v) == ""
		case *decimal.Decimal:
			missing = v == nil
		case time.Time:
			missing = v.IsZero()
		case nil:
			missing = true
		}
		if missing {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && utf8.RuneCountInString(v) < min {
			message := fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && utf8.RuneCountInString(v) > max {
			message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

// CurrencyCode accepts three ASCII letters. Empty values pass.
func (fv *FieldValidator) CurrencyCode() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := stringValue(value)
		if !ok || v == "" {
			return nil
		}
		if len(v) != 3 {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be a 3-letter code", fv.FieldName), errors.ErrCodeInvalidCurrency)
		}
		for _, r := range v {
			if r > unicode.MaxASCII || !unicode.IsLetter(r) {
				return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be a 3-letter code", fv.FieldName), errors.ErrCodeInvalidCurrency)
			}
		}
		return nil
	})
	return fv
}

// MaxDigits rejects amounts that do not fit NUMERIC(14,2).
func (fv *FieldValidator) MaxDigits(integerDigits int32) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		d, ok := value.(*decimal.Decimal)
		if !ok || d == nil {
			return nil
		}
		limit := decimal.New(1, integerDigits)
		if d.Abs().GreaterThanOrEqual(limit) {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is out of range", fv.FieldName), errors.ErrCodeInvalidAmount)
		}
		if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must have at most 2 decimal places", fv.FieldName), errors.ErrCodeInvalidAmount)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every validator and stops at the first failure per field.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}
			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: appErr.Message,
					Code:    string(appErr.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(field, value string) (time.Time, *errors.AppError) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.NewValidationFieldError(field, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field), errors.ErrCodeInvalidDate)
	}
	return t, nil
}

func ParseAmount(field, value string) (decimal.Decimal, *errors.AppError) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, errors.NewValidationFieldError(field, fmt.Sprintf("%s must be a decimal number", field), errors.ErrCodeInvalidAmount)
	}
	return d, nil
}

func ValidateCredentials(username, password string) *errors.AppError {
	validator := NewValidator()
	validator.Field("username", username).
		Required().
		MinLength(UsernameMinLength).
		MaxLength(UsernameMaxLength)
	validator.Field("password", password).
		Required().
		MinLength(PasswordMinLength).
		Custom(maxBytes("password", PasswordMaxBytes))
	return validator.Validate()
}

// maxBytes bounds the encoded size; bcrypt rejects input past 72 bytes.
func maxBytes(field string, max int) ValidatorFunc {
	return func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && len(v) > max {
			return errors.NewValidationFieldError(field, fmt.Sprintf("%s must not exceed %d bytes", field, max), errors.ErrCodeValidationFailed)
		}
		return nil
	}
}

func ValidatePassword(password string) *errors.AppError {
	validator := NewValidator()
	validator.Field("password", password).
		Required().
		MinLength(PasswordMinLength).
		Custom(maxBytes("password", PasswordMaxBytes))
	return validator.Validate()
}
