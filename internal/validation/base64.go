package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
)

// Base64 validates standard, padded base64. Plaintexts and ciphertexts travel in
// this encoding; URL-safe and unpadded forms are rejected.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.Strict().DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
