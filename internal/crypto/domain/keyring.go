package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// KMSKeeper unwraps KEK material that was encrypted by an external KMS.
// *secrets.Keeper from gocloud.dev satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KekConfig is one plaintext KEK loaded from configuration.
type KekConfig struct {
	ID        uuid.UUID
	Algorithm Algorithm
	Key       []byte
}

// Keyring is the full KEK configuration: every KEK that may still be needed to
// decrypt stored values, plus the one used for new writes.
type Keyring struct {
	DefaultID uuid.UUID
	Keys      []KekConfig
}

// Get returns the KEK with the given id.
func (k *Keyring) Get(id uuid.UUID) (*KekConfig, bool) {
	for i := range k.Keys {
		if k.Keys[i].ID == id {
			return &k.Keys[i], true
		}
	}
	return nil, false
}

// Default returns the KEK used for new writes.
func (k *Keyring) Default() (*KekConfig, bool) {
	return k.Get(k.DefaultID)
}

// Close zeroes every key in the keyring.
func (k *Keyring) Close() {
	for i := range k.Keys {
		Zero(k.Keys[i].Key)
	}
	k.Keys = nil
	k.DefaultID = uuid.Nil
}

func (k *Keyring) add(kek KekConfig) error {
	if _, exists := k.Get(kek.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKekID, kek.ID)
	}
	k.Keys = append(k.Keys, kek)
	return nil
}

func (k *Keyring) validate() error {
	if _, ok := k.Default(); !ok {
		return fmt.Errorf("%w: %s", ErrActiveKekNotFound, k.DefaultID)
	}
	return nil
}

// ParseKeyring builds a keyring from the KEKS/ACTIVE_KEK_ID environment format:
//
//	KEKS="<uuid>:<base64(tagged key)>,<uuid>:<base64(tagged key)>"
//	ACTIVE_KEK_ID="<uuid>"
//
// A tagged key is be16(algorithm) ++ key, so each entry carries its own algorithm.
// When keeper is non-nil the base64 payload is KMS ciphertext of the tagged key.
// On error every key decoded so far is zeroed.
func ParseKeyring(ctx context.Context, raw, active string, keeper KMSKeeper) (*Keyring, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrKeyringNotSet
	}
	if strings.TrimSpace(active) == "" {
		return nil, ErrActiveKekIDNotSet
	}

	defaultID, err := uuid.Parse(strings.TrimSpace(active))
	if err != nil {
		return nil, fmt.Errorf("%w: ACTIVE_KEK_ID: %v", ErrInvalidKeyringFormat, err)
	}

	kr := &Keyring{DefaultID: defaultID}
	for part := range strings.SplitSeq(raw, ",") {
		idStr, encoded, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			kr.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidKeyringFormat, part)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("%w: id %q: %v", ErrInvalidKeyringFormat, idStr, err)
		}

		blob, err := decodeKeyMaterial(ctx, encoded, keeper)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("kek %s: %w", id, err)
		}

		alg, key, err := UnmarshalTaggedKey(blob)
		Zero(blob)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("kek %s: %w", id, err)
		}

		if err := kr.add(KekConfig{ID: id, Algorithm: alg, Key: key}); err != nil {
			Zero(key)
			kr.Close()
			return nil, err
		}
	}

	if err := kr.validate(); err != nil {
		kr.Close()
		return nil, err
	}
	return kr, nil
}

// keyringFile is the YAML layout of a keyring file.
type keyringFile struct {
	Default string           `yaml:"default"`
	Keys    []keyringFileKey `yaml:"keys"`
}

type keyringFileKey struct {
	ID        string `yaml:"id"`
	Algorithm string `yaml:"algorithm"`
	Key       string `yaml:"key"`
}

// LoadKeyringFile reads a YAML keyring:
//
//	default: 0190d3a4-...
//	keys:
//	  - id: 0190d3a4-...
//	    algorithm: chacha20-poly1305
//	    key: <base64 raw key, or KMS ciphertext when a keeper is configured>
func LoadKeyringFile(ctx context.Context, path string, keeper KMSKeeper) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring file: %w", err)
	}
	return ParseKeyringYAML(ctx, data, keeper)
}

// ParseKeyringYAML parses the YAML keyring layout documented on LoadKeyringFile.
func ParseKeyringYAML(ctx context.Context, data []byte, keeper KMSKeeper) (*Keyring, error) {
	var file keyringFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyringFormat, err)
	}
	if len(file.Keys) == 0 {
		return nil, ErrKeyringNotSet
	}

	defaultID, err := uuid.Parse(file.Default)
	if err != nil {
		return nil, fmt.Errorf("%w: default: %v", ErrInvalidKeyringFormat, err)
	}

	kr := &Keyring{DefaultID: defaultID}
	for _, entry := range file.Keys {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("%w: id %q: %v", ErrInvalidKeyringFormat, entry.ID, err)
		}

		alg, err := ParseAlgorithm(entry.Algorithm)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("kek %s: %w", id, err)
		}

		var key []byte
		if alg != Unencrypted {
			key, err = decodeKeyMaterial(ctx, entry.Key, keeper)
			if err != nil {
				kr.Close()
				return nil, fmt.Errorf("kek %s: %w", id, err)
			}
		}
		if len(key) != alg.KeySize() {
			Zero(key)
			kr.Close()
			return nil, fmt.Errorf(
				"%w: kek %s (%s) must be %d bytes, got %d",
				ErrInvalidKeySize, id, alg, alg.KeySize(), len(key),
			)
		}

		if err := kr.add(KekConfig{ID: id, Algorithm: alg, Key: key}); err != nil {
			Zero(key)
			kr.Close()
			return nil, err
		}
	}

	if err := kr.validate(); err != nil {
		kr.Close()
		return nil, err
	}
	return kr, nil
}

func decodeKeyMaterial(ctx context.Context, encoded string, keeper KMSKeeper) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrInvalidKeyringFormat, err)
	}
	if keeper == nil {
		return decoded, nil
	}

	plaintext, err := keeper.Decrypt(ctx, decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key material with KMS: %w", err)
	}
	return plaintext, nil
}
