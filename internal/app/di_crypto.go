package app

import (
	"fmt"
	"log/slog"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
)

// KMSService returns the service that opens external KMS keepers.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// Keyring returns the KEK keyring loaded from KEK_FILE, or from KEKS and ACTIVE_KEK_ID.
func (c *Container) Keyring() (*cryptoDomain.Keyring, error) {
	if err := c.initOnce(&c.keyringInit, "keyring", func() error {
		keyring, err := c.initKeyring()
		c.keyring = keyring
		return err
	}); err != nil {
		return nil, err
	}
	return c.keyring, nil
}

// KEKCipher returns the rotatable cipher over every KEK in the keyring.
func (c *Container) KEKCipher() (*cryptoService.RotatableCipher, error) {
	if err := c.initOnce(&c.kekCipherInit, "kekCipher", func() error {
		keyring, err := c.Keyring()
		if err != nil {
			return fmt.Errorf("failed to get keyring for kek cipher: %w", err)
		}

		c.kekCipher, err = cryptoService.NewKeyringCipher(keyring)
		if err != nil {
			return fmt.Errorf("failed to build kek cipher: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return c.kekCipher, nil
}

// initKeyring loads the keyring, unwrapping key material through KMS_KEY_URI when set.
// The keeper is closed once the keys are unwrapped. KMS calls stop when the container
// shuts down.
func (c *Container) initKeyring() (*cryptoDomain.Keyring, error) {
	ctx := c.ctx
	logger := c.Logger()

	var keeper cryptoDomain.KMSKeeper
	if c.config.KMSKeyURI != "" {
		var err error
		keeper, err = c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := keeper.Close(); err != nil {
				logger.Warn("failed to close KMS keeper", slog.Any("error", err))
			}
		}()
	}

	var (
		keyring *cryptoDomain.Keyring
		err     error
	)
	if c.config.KEKFile != "" {
		keyring, err = cryptoDomain.LoadKeyringFile(ctx, c.config.KEKFile, keeper)
	} else {
		keyring, err = cryptoDomain.ParseKeyring(ctx, c.config.KEKs, c.config.ActiveKEKID, keeper)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring: %w", err)
	}

	logger.Info("keyring loaded",
		slog.String("active_kek_id", keyring.DefaultID.String()),
		slog.Int("kek_count", len(keyring.Keys)),
		slog.Bool("kms_wrapped", keeper != nil),
	)
	return keyring, nil
}
