// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/kagimori/internal/errors"
	customValidation "github.com/allisson/kagimori/internal/validation"
)

// VersionAnnotation is the annotation key carrying the DEK version of a ciphertext as a
// little-endian uint64. Kubernetes stores it next to the ciphertext and hands it back
// on decrypt.
const VersionAnnotation = "kagimori.kinorca.com/key-version"

// DefaultService names the caller recorded in audit events when a request does not.
const DefaultService = "kubernetes.io/kms/v2"

// ErrMissingVersion indicates a decrypt request that names no DEK version.
var ErrMissingVersion = apperrors.Wrap(apperrors.ErrInvalidInput, "ciphertext version is required")

// Caller carries the optional audit identity fields shared by data-plane requests.
type Caller struct {
	Service string  `json:"service,omitempty"`
	User    string  `json:"user,omitempty"`
	DataKey *string `json:"data_key,omitempty"`
}

// EncryptRequest contains the parameters for encrypting data.
type EncryptRequest struct {
	Plaintext string `json:"plaintext"` // Base64-encoded plaintext
	Caller
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Base64,
		),
		validation.Field(&r.Service, validation.Length(0, 255)),
		validation.Field(&r.User, validation.Length(0, 255)),
	)
}

// DecryptRequest contains the parameters for decrypting data. The version is taken from
// Version, or from the VersionAnnotation when Version is absent.
type DecryptRequest struct {
	Ciphertext  string            `json:"ciphertext"` // Base64-encoded ciphertext
	Version     *uint64           `json:"version,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"` // Values are base64
	Caller
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ciphertext,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Base64,
		),
		validation.Field(&r.Version, validation.Min(uint64(1))),
		validation.Field(&r.Service, validation.Length(0, 255)),
		validation.Field(&r.User, validation.Length(0, 255)),
	)
}

// ResolveVersion returns the DEK version named by the request.
func (r *DecryptRequest) ResolveVersion() (uint64, error) {
	if r.Version != nil {
		if *r.Version == 0 {
			return 0, fmt.Errorf("%w: version must be positive", ErrMissingVersion)
		}
		return *r.Version, nil
	}

	encoded, ok := r.Annotations[VersionAnnotation]
	if !ok {
		return 0, ErrMissingVersion
	}
	return DecodeVersionAnnotation(encoded)
}

// EncodeVersionAnnotation returns base64(le_u64(version)).
func EncodeVersionAnnotation(version uint64) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], version)
	return base64.StdEncoding.EncodeToString(buf[:])
}

// DecodeVersionAnnotation parses a VersionAnnotation value.
func DecodeVersionAnnotation(encoded string) (uint64, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, fmt.Errorf("%w: annotation %s is not base64", ErrMissingVersion, VersionAnnotation)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: annotation %s must be 8 bytes, got %d", ErrMissingVersion, VersionAnnotation, len(raw))
	}

	version := binary.LittleEndian.Uint64(raw)
	if version == 0 {
		return 0, fmt.Errorf("%w: annotation %s names version 0", ErrMissingVersion, VersionAnnotation)
	}
	return version, nil
}
