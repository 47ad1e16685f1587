package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper behind keyURI. Supported schemes are gcpkms://,
// awskms://, azurekeyvault://, hashivault:// and base64key:// (local, for tests and
// development).
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	if strings.TrimSpace(keyURI) == "" {
		return nil, errors.New("failed to open KMS keeper: key URI is empty")
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		// Provider errors can echo the URI, which for base64key:// holds the key itself.
		scheme, _, _ := strings.Cut(keyURI, "://")
		return nil, fmt.Errorf("failed to open KMS keeper (%s): %w", scheme, redactURI(err, keyURI))
	}
	return keeper, nil
}

func redactURI(err error, keyURI string) error {
	msg := err.Error()
	redacted := strings.ReplaceAll(msg, keyURI, "[redacted]")
	if scheme, rest, ok := strings.Cut(keyURI, "://"); ok && scheme == "base64key" && rest != "" {
		redacted = strings.ReplaceAll(redacted, rest, "[redacted]")
	}
	if redacted == msg {
		return err
	}
	return errors.New(redacted)
}
