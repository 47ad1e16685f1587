package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

func TestUUIDLEBytes(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")

	le := UUIDToLEBytes(id)
	assert.Equal(t, []byte{
		0x33, 0x22, 0x11, 0x00,
		0x55, 0x44,
		0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}, le)

	back, err := UUIDFromLEBytes(le)
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = UUIDFromLEBytes(le[:15])
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyID)
}

func newTestKEK(t *testing.T, alg cryptoDomain.Algorithm) Cipher {
	t.Helper()
	c, err := GenerateCipher(alg)
	require.NoError(t, err)
	return c
}

func TestNewRotatableCipher(t *testing.T) {
	a := uuid.New()

	t.Run("default present", func(t *testing.T) {
		rc, err := NewRotatableCipher(a, map[uuid.UUID]Cipher{a: newTestKEK(t, cryptoDomain.ChaCha20Poly1305)})
		require.NoError(t, err)
		assert.Equal(t, a, rc.DefaultKeyID())
		assert.Equal(t, "chacha20-poly1305", rc.Name())
		assert.True(t, rc.Contains(a))
		assert.False(t, rc.Contains(uuid.New()))
	})

	t.Run("default missing", func(t *testing.T) {
		rc, err := NewRotatableCipher(uuid.New(), map[uuid.UUID]Cipher{a: newTestKEK(t, cryptoDomain.ChaCha20Poly1305)})
		assert.ErrorIs(t, err, cryptoDomain.ErrActiveKekNotFound)
		assert.Nil(t, rc)
	})

	t.Run("empty map", func(t *testing.T) {
		_, err := NewRotatableCipher(a, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrActiveKekNotFound)
	})
}

func TestRotatableCipher_Rotation(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	kekA := newTestKEK(t, cryptoDomain.ChaCha20Poly1305)
	kekB := newTestKEK(t, cryptoDomain.AESSIV)

	withA, err := NewRotatableCipher(idA, map[uuid.UUID]Cipher{idA: kekA, idB: kekB})
	require.NoError(t, err)

	ct, err := withA.Encrypt([]byte("record"))
	require.NoError(t, err)
	assert.Equal(t, UUIDToLEBytes(idA), ct[:KeyIDSize])

	t.Run("old ciphertext decrypts after default moves to B", func(t *testing.T) {
		withB, err := NewRotatableCipher(idB, map[uuid.UUID]Cipher{idA: kekA, idB: kekB})
		require.NoError(t, err)

		pt, err := withB.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, []byte("record"), pt)

		fresh, err := withB.Encrypt([]byte("record"))
		require.NoError(t, err)
		assert.Equal(t, UUIDToLEBytes(idB), fresh[:KeyIDSize])
	})

	t.Run("A removed from the keyring", func(t *testing.T) {
		onlyB, err := NewRotatableCipher(idB, map[uuid.UUID]Cipher{idB: kekB})
		require.NoError(t, err)

		pt, err := onlyB.Decrypt(ct)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
		assert.ErrorContains(t, err, idA.String())
		assert.Nil(t, pt)
	})

	t.Run("tampered id prefix", func(t *testing.T) {
		tampered := append([]byte(nil), ct...)
		tampered[0] ^= 0xff
		_, err := withA.Decrypt(tampered)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})

	t.Run("tampered payload", func(t *testing.T) {
		tampered := append([]byte(nil), ct...)
		tampered[len(tampered)-1] ^= 0x01
		_, err := withA.Decrypt(tampered)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("shorter than key id", func(t *testing.T) {
		_, err := withA.Decrypt(ct[:KeyIDSize-1])
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyID)
	})
}

func TestRotatableCipher_UnencryptedKEK(t *testing.T) {
	id := uuid.New()
	rc, err := NewRotatableCipher(id, map[uuid.UUID]Cipher{id: NewUnencrypted()})
	require.NoError(t, err)

	ct, err := rc.Encrypt([]byte("dev"))
	require.NoError(t, err)
	assert.Equal(t, append(UUIDToLEBytes(id), []byte("dev")...), ct)

	pt, err := rc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("dev"), pt)
}

func TestNewKeyringCipher(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	keyring := &cryptoDomain.Keyring{
		DefaultID: idB,
		Keys: []cryptoDomain.KekConfig{
			{ID: idA, Algorithm: cryptoDomain.ChaCha20Poly1305, Key: make([]byte, 32)},
			{ID: idB, Algorithm: cryptoDomain.AESSIV, Key: make([]byte, 64)},
		},
	}

	t.Run("builds every kek", func(t *testing.T) {
		rc, err := NewKeyringCipher(keyring)
		require.NoError(t, err)
		assert.Equal(t, idB, rc.DefaultKeyID())
		assert.Equal(t, cryptoDomain.AESSIV, rc.Algorithm())
		assert.ElementsMatch(t, []uuid.UUID{idA, idB}, rc.KeyIDs())
	})

	t.Run("nil keyring", func(t *testing.T) {
		_, err := NewKeyringCipher(nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyringNotSet)
	})

	t.Run("bad key size", func(t *testing.T) {
		bad := &cryptoDomain.Keyring{
			DefaultID: idA,
			Keys:      []cryptoDomain.KekConfig{{ID: idA, Algorithm: cryptoDomain.AESSIV, Key: make([]byte, 32)}},
		}
		_, err := NewKeyringCipher(bad)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("duplicate id", func(t *testing.T) {
		dup := &cryptoDomain.Keyring{
			DefaultID: idA,
			Keys: []cryptoDomain.KekConfig{
				{ID: idA, Algorithm: cryptoDomain.Unencrypted},
				{ID: idA, Algorithm: cryptoDomain.Unencrypted},
			},
		}
		_, err := NewKeyringCipher(dup)
		assert.ErrorIs(t, err, cryptoDomain.ErrDuplicateKekID)
	})
}
