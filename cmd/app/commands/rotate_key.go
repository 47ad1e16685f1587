package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	"github.com/allisson/kagimori/internal/encryption/http/dto"
	encryptionUseCase "github.com/allisson/kagimori/internal/encryption/usecase"
)

// cliService names the CLI in audit events.
const cliService = "kagimori-cli"

// RunRotateKey creates the next DEK version of id. Data encrypted under earlier
// versions stays decryptable.
func RunRotateKey(
	ctx context.Context,
	encryptor encryptionUseCase.Encryptor,
	logger *slog.Logger,
	w io.Writer,
	id string,
	format string,
) error {
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	eventID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}

	info := encryptionDomain.RequestInfo{EventID: eventID.String(), Service: cliService}
	ref, err := encryptor.Rotate(ctx, info, id)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	logger.Info("key rotated", slog.String("key_id", ref.ID), slog.Uint64("version", ref.Version))

	if format == "json" {
		return writeJSON(w, dto.MapKeyRefToResponse(ref))
	}
	_, err = fmt.Fprintf(w, "Key %s rotated to version %d\n", ref.ID, ref.Version)
	return err
}
