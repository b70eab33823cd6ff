// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
)

// Base64URL validates that a string is unpadded base64url data, the encoding
// PKCE code challenges use (RFC 7636 section 4.2).
var Base64URL = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64url_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_base64url", "must be valid base64url-encoded data")
	}
	return nil
})
