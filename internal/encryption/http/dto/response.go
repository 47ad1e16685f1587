package dto

import (
	"encoding/base64"
	"encoding/hex"

	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
)

// KMSStatusResponse answers the KMS plugin status probe.
type KMSStatusResponse struct {
	Version string `json:"version"`
	Healthz string `json:"healthz"`
	KeyID   string `json:"key_id"`
}

// EncryptResponse represents an encrypted payload in API responses.
type EncryptResponse struct {
	KeyID       string            `json:"key_id"`
	Version     uint64            `json:"version"`
	Ciphertext  string            `json:"ciphertext"` // Base64-encoded
	Annotations map[string]string `json:"annotations"`
}

// MapCiphertextToEncryptResponse converts a domain ciphertext to an API response.
func MapCiphertextToEncryptResponse(ct *encryptionDomain.Ciphertext) EncryptResponse {
	return EncryptResponse{
		KeyID:      ct.KeyID,
		Version:    ct.Version,
		Ciphertext: base64.StdEncoding.EncodeToString(ct.Ciphertext),
		Annotations: map[string]string{
			VersionAnnotation: EncodeVersionAnnotation(ct.Version),
		},
	}
}

// DecryptResponse represents decrypted data in API responses.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"` // Base64-encoded
}

// MapDecryptResponse encodes plaintext for an API response.
func MapDecryptResponse(plaintext []byte) DecryptResponse {
	return DecryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)}
}

// KeyRefResponse names a DEK version.
type KeyRefResponse struct {
	KeyID   string `json:"key_id"`
	Version uint64 `json:"version"`
}

// MapKeyRefToResponse converts a domain key reference to an API response.
func MapKeyRefToResponse(ref *encryptionDomain.EncryptionKeyRef) KeyRefResponse {
	return KeyRefResponse{KeyID: ref.ID, Version: ref.Version}
}

// KeyStatusResponse describes the latest DEK of an identifier.
type KeyStatusResponse struct {
	KeyID       string `json:"key_id"`
	Version     uint64 `json:"version"`
	Algorithm   string `json:"algorithm"`
	Fingerprint string `json:"fingerprint"` // Hex-encoded
}

// MapKeyStatusToResponse converts a domain key status to an API response.
func MapKeyStatusToResponse(status *encryptionDomain.KeyStatus) KeyStatusResponse {
	return KeyStatusResponse{
		KeyID:       status.ID,
		Version:     status.Version,
		Algorithm:   status.Algorithm.String(),
		Fingerprint: hex.EncodeToString(status.Fingerprint[:]),
	}
}
