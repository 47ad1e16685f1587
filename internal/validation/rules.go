// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	apperrors "github.com/allisson/kagimori/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// KeyIdentifier validates that a string can name a DEK chain in storage.
var KeyIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return encryptionDomain.ValidateIdentifier(s) == nil
	},
	validation.NewError(
		"validation_key_identifier",
		"must be 1-255 characters without '/', control characters, '.' or '..'",
	),
)
