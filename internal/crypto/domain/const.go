// Package domain defines the cryptographic vocabulary shared by the KEK layer and the
// DEK lifecycle: algorithm tags, key sizes, the tagged key encoding, key fingerprints
// and the KEK keyring configuration.
//
// The hierarchy is two-tier. KEKs are loaded from configuration at startup and are
// immutable for the process lifetime; they protect every value written to storage.
// DEKs are generated on demand, persisted (encrypted by the KEK layer) and used to
// encrypt caller data.
package domain

import (
	"fmt"
)

// Algorithm is the 16-bit tag identifying an AEAD construction. The numeric value is
// part of the on-disk and on-wire format (big-endian when embedded in a blob) and must
// never be renumbered.
type Algorithm uint16

const (
	// Unencrypted passes data through unchanged. Only valid as a KEK, for development
	// keyrings; the DEK layer rejects it.
	Unencrypted Algorithm = 0x0000

	// ChaCha20Poly1305 is ChaCha20-Poly1305 with a 32-byte key and 12-byte nonce.
	ChaCha20Poly1305 Algorithm = 0x0001

	// AESSIV is AES-SIV (RFC 5297, CMAC based) with a 64-byte key. SIV is
	// nonce-misuse resistant: a repeated nonce leaks only plaintext equality.
	AESSIV Algorithm = 0x0002

	// XChaCha20Poly1305 is the extended-nonce ChaCha20-Poly1305 variant with a 24-byte
	// nonce, safe for random nonces at very high message counts.
	XChaCha20Poly1305 Algorithm = 0x0003
)

// Key sizes in bytes.
const (
	ChaCha20KeySize = 32
	AESSIVKeySize   = 64
)

// String returns the canonical configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Unencrypted:
		return "unencrypted"
	case ChaCha20Poly1305:
		return "chacha20-poly1305"
	case AESSIV:
		return "aes-siv"
	case XChaCha20Poly1305:
		return "xchacha20-poly1305"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(a))
	}
}

// KeySize returns the required key length for the algorithm, or -1 when the
// algorithm is unknown.
func (a Algorithm) KeySize() int {
	switch a {
	case Unencrypted:
		return 0
	case ChaCha20Poly1305, XChaCha20Poly1305:
		return ChaCha20KeySize
	case AESSIV:
		return AESSIVKeySize
	default:
		return -1
	}
}

// IsKnown reports whether a is one of the supported tags.
func (a Algorithm) IsKnown() bool {
	return a.KeySize() >= 0
}

// IsDataAlgorithm reports whether a may protect caller data (DEK layer).
func (a Algorithm) IsDataAlgorithm() bool {
	return a.IsKnown() && a != Unencrypted
}

// ParseAlgorithm converts a configuration name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "unencrypted":
		return Unencrypted, nil
	case "chacha20-poly1305":
		return ChaCha20Poly1305, nil
	case "aes-siv":
		return AESSIV, nil
	case "xchacha20-poly1305":
		return XChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}
