package service

import (
	"fmt"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// KeyIDSize is the length of the KEK identifier prefix on rotated ciphertext.
const KeyIDSize = 16

// RotatableCipher encrypts with a default KEK and prefixes its identifier to the
// output, so ciphertext from any KEK still present in the set stays decryptable after
// the default changes.
//
// Output layout: le_uuid(default id) ++ inner envelope.
type RotatableCipher struct {
	defaultID     uuid.UUID
	defaultCipher Cipher
	ciphers       map[uuid.UUID]Cipher
}

// NewRotatableCipher builds a RotatableCipher. defaultID must be present in ciphers.
func NewRotatableCipher(defaultID uuid.UUID, ciphers map[uuid.UUID]Cipher) (*RotatableCipher, error) {
	def, ok := ciphers[defaultID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrActiveKekNotFound, defaultID)
	}

	owned := make(map[uuid.UUID]Cipher, len(ciphers))
	for id, c := range ciphers {
		owned[id] = c
	}
	return &RotatableCipher{defaultID: defaultID, defaultCipher: def, ciphers: owned}, nil
}

func (r *RotatableCipher) Encrypt(plaintext []byte) ([]byte, error) {
	inner, err := r.defaultCipher.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, KeyIDSize+len(inner))
	out = append(out, UUIDToLEBytes(r.defaultID)...)
	return append(out, inner...), nil
}

func (r *RotatableCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < KeyIDSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than %d byte key id", cryptoDomain.ErrInvalidKeyID, KeyIDSize)
	}

	id, err := UUIDFromLEBytes(ciphertext[:KeyIDSize])
	if err != nil {
		return nil, err
	}

	c, ok := r.ciphers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyNotFound, id)
	}
	return c.Decrypt(ciphertext[KeyIDSize:])
}

// Name reports the default KEK's algorithm.
func (r *RotatableCipher) Name() string {
	return r.defaultCipher.Name()
}

func (r *RotatableCipher) Algorithm() cryptoDomain.Algorithm {
	return r.defaultCipher.Algorithm()
}

// Key returns the default KEK's key.
func (r *RotatableCipher) Key() []byte {
	return r.defaultCipher.Key()
}

// DefaultKeyID returns the identifier used for new encryptions.
func (r *RotatableCipher) DefaultKeyID() uuid.UUID {
	return r.defaultID
}

// Contains reports whether id is part of the keyring.
func (r *RotatableCipher) Contains(id uuid.UUID) bool {
	_, ok := r.ciphers[id]
	return ok
}

// KeyIDs returns the identifiers of every KEK in the set, in no particular order.
func (r *RotatableCipher) KeyIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.ciphers))
	for id := range r.ciphers {
		ids = append(ids, id)
	}
	return ids
}

func (r *RotatableCipher) sealed() {}

// UUIDToLEBytes returns the little-endian (Microsoft GUID) byte layout of id: the
// first three fields are byte-swapped, the last eight bytes are unchanged.
func UUIDToLEBytes(id uuid.UUID) []byte {
	b := make([]byte, KeyIDSize)
	copy(b, id[:])
	swapUUIDFields(b)
	return b
}

// UUIDFromLEBytes parses the layout produced by UUIDToLEBytes.
func UUIDFromLEBytes(b []byte) (uuid.UUID, error) {
	if len(b) != KeyIDSize {
		return uuid.Nil, fmt.Errorf("%w: expected %d bytes, got %d", cryptoDomain.ErrInvalidKeyID, KeyIDSize, len(b))
	}

	var id uuid.UUID
	copy(id[:], b)
	swapUUIDFields(id[:])
	return id, nil
}

func swapUUIDFields(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
}
