package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
)

// RunCreateKek generates a Key Encryption Key and writes it in a form the server
// can load. Nothing is persisted; the operator copies the output into the
// environment or a keyring file.
//
// Output formats:
//   - env:  KEKS="<uuid>:<base64(tagged key)>" and ACTIVE_KEK_ID="<uuid>"
//   - yaml: a keyring file with the raw key under keys[].key
//
// When kmsKeyURI is set the key material is encrypted with that KMS key before it is
// encoded, and the env output includes KMS_KEY_URI.
func RunCreateKek(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	w io.Writer,
	algorithmStr string,
	kmsKeyURI string,
	format string,
) error {
	if format != "env" && format != "yaml" {
		return fmt.Errorf("invalid format: %s (valid options: env, yaml)", format)
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}
	if algorithm == cryptoDomain.Unencrypted {
		return fmt.Errorf("invalid algorithm: %s (a KEK must encrypt)", algorithmStr)
	}

	kekID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate KEK id: %w", err)
	}

	kek, err := cryptoService.GenerateCipher(algorithm)
	if err != nil {
		return fmt.Errorf("failed to generate KEK: %w", err)
	}

	// env entries carry their algorithm in the tag; yaml entries name it separately.
	var material []byte
	if format == "env" {
		material, err = cryptoService.ExportTaggedKey(kek)
		if err != nil {
			return err
		}
	} else {
		material = kek.Key()
	}
	defer cryptoDomain.Zero(material)

	encoded := material
	if kmsKeyURI != "" {
		encoded, err = wrapWithKMS(ctx, kmsService, kmsKeyURI, material)
		if err != nil {
			return err
		}
	}

	logger.Info("KEK generated",
		slog.String("kek_id", kekID.String()),
		slog.String("algorithm", algorithm.String()),
		slog.Bool("kms_wrapped", kmsKeyURI != ""),
	)

	value := base64.StdEncoding.EncodeToString(encoded)
	if format == "yaml" {
		_, err = fmt.Fprintf(w,
			"# Keyring file (KEK_FILE)\ndefault: %s\nkeys:\n  - id: %s\n    algorithm: %s\n    key: %s\n",
			kekID, kekID, algorithm, value,
		)
		return err
	}

	if _, err := fmt.Fprintln(w, "# KEK configuration: copy these variables to your .env file or secrets manager"); err != nil {
		return err
	}
	if kmsKeyURI != "" {
		if _, err := fmt.Fprintf(w, "KMS_KEY_URI=%q\n", kmsKeyURI); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "KEKS=\"%s:%s\"\nACTIVE_KEK_ID=\"%s\"\n", kekID, value, kekID)
	return err
}

func wrapWithKMS(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	kmsKeyURI string,
	material []byte,
) ([]byte, error) {
	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := keeper.Encrypt(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt KEK with KMS: %w", err)
	}
	return wrapped, nil
}
