package domain

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// Records use the protobuf wire format:
//
//	message EncryptionKey    { string id = 1; uint64 version = 2; uint32 algorithm = 3; bytes key = 4; }
//	message EncryptionKeyRef { string id = 1; uint64 version = 2; }
//
// algorithm is the crypto Algorithm tag. Unknown fields are skipped on decode.
const (
	fieldID        protowire.Number = 1
	fieldVersion   protowire.Number = 2
	fieldAlgorithm protowire.Number = 3
	fieldKey       protowire.Number = 4
)

// MarshalEncryptionKey encodes a DEK record.
func MarshalEncryptionKey(k *EncryptionKey) []byte {
	b := make([]byte, 0, 16+len(k.ID)+len(k.Key))
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, k.ID)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, k.Version)
	b = protowire.AppendTag(b, fieldAlgorithm, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(k.Algorithm))
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendBytes(b, k.Key)
	return b
}

// UnmarshalEncryptionKey decodes a DEK record. The algorithm is not validated here;
// that happens when a cipher is built from the record.
func UnmarshalEncryptionKey(b []byte) (*EncryptionKey, error) {
	k := &EncryptionKey{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			k.ID = v
			return n, nil
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			k.Version = v
			return n, nil
		case num == fieldAlgorithm && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 && v > 0xffff {
				return n, fmt.Errorf("%w: tag %d", ErrUnsupportedAlgorithm, v)
			}
			k.Algorithm = cryptoDomain.Algorithm(v)
			return n, nil
		case num == fieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			k.Key = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		cryptoDomain.Zero(k.Key)
		return nil, err
	}
	return k, nil
}

// MarshalEncryptionKeyRef encodes a latest pointer.
func MarshalEncryptionKeyRef(r EncryptionKeyRef) []byte {
	b := make([]byte, 0, 8+len(r.ID))
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, r.ID)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Version)
	return b
}

// UnmarshalEncryptionKeyRef decodes a latest pointer.
func UnmarshalEncryptionKeyRef(b []byte) (EncryptionKeyRef, error) {
	var r EncryptionKeyRef
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.ID = v
			return n, nil
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Version = v
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	return r, err
}

func consumeFields(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrCorruptRecord, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrCorruptRecord, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
