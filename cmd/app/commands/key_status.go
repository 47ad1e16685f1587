package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/allisson/kagimori/internal/encryption/http/dto"
	encryptionUseCase "github.com/allisson/kagimori/internal/encryption/usecase"
)

// RunKeyStatus prints the latest DEK version of id. Never creates a key.
func RunKeyStatus(
	ctx context.Context,
	encryptor encryptionUseCase.Encryptor,
	w io.Writer,
	id string,
	format string,
) error {
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	status, err := encryptor.Status(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get key status: %w", err)
	}

	response := dto.MapKeyStatusToResponse(status)
	if format == "json" {
		return writeJSON(w, response)
	}
	_, err = fmt.Fprintf(w,
		"Key ID:      %s\nVersion:     %d\nAlgorithm:   %s\nFingerprint: %s\n",
		response.KeyID, response.Version, response.Algorithm, response.Fingerprint,
	)
	return err
}
