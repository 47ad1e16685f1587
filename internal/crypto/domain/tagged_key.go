package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// TagSize is the length of the big-endian algorithm tag that prefixes a tagged key.
const TagSize = 2

// FingerprintSize is the length of a key fingerprint.
const FingerprintSize = 16

// MarshalTaggedKey encodes key material as be16(algorithm) ++ key. This is the form
// used wherever a key travels as a single opaque blob (keyring entries, exports).
func MarshalTaggedKey(alg Algorithm, key []byte) ([]byte, error) {
	if !alg.IsKnown() {
		return nil, fmt.Errorf("%w: tag 0x%04x", ErrUnsupportedAlgorithm, uint16(alg))
	}
	if len(key) != alg.KeySize() {
		return nil, fmt.Errorf("%w: %s requires %d bytes, got %d", ErrInvalidKeySize, alg, alg.KeySize(), len(key))
	}

	out := make([]byte, TagSize+len(key))
	binary.BigEndian.PutUint16(out, uint16(alg))
	copy(out[TagSize:], key)
	return out, nil
}

// UnmarshalTaggedKey splits a tagged key into its algorithm and a copy of the raw key.
func UnmarshalTaggedKey(blob []byte) (Algorithm, []byte, error) {
	if len(blob) < TagSize {
		return 0, nil, fmt.Errorf("%w: tagged key shorter than tag", ErrUnsupportedAlgorithm)
	}

	alg := Algorithm(binary.BigEndian.Uint16(blob))
	if !alg.IsKnown() {
		return 0, nil, fmt.Errorf("%w: tag 0x%04x", ErrUnsupportedAlgorithm, uint16(alg))
	}

	raw := blob[TagSize:]
	if len(raw) != alg.KeySize() {
		return 0, nil, fmt.Errorf("%w: %s requires %d bytes, got %d", ErrInvalidKeySize, alg, alg.KeySize(), len(raw))
	}

	key := make([]byte, len(raw))
	copy(key, raw)
	return alg, key, nil
}

// ComputeFingerprint derives a stable, non-secret identifier for key material:
// be16(algorithm) ++ sha256(key)[:14].
func ComputeFingerprint(alg Algorithm, key []byte) [FingerprintSize]byte {
	var fp [FingerprintSize]byte
	binary.BigEndian.PutUint16(fp[:TagSize], uint16(alg))

	sum := sha256.Sum256(key)
	copy(fp[TagSize:], sum[:FingerprintSize-TagSize])
	return fp
}
