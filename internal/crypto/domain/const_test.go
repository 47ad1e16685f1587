package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Algorithm
		wantErr bool
	}{
		{name: "chacha20", input: "chacha20-poly1305", want: ChaCha20Poly1305},
		{name: "aes-siv", input: "aes-siv", want: AESSIV},
		{name: "xchacha20", input: "xchacha20-poly1305", want: XChaCha20Poly1305},
		{name: "unencrypted", input: "unencrypted", want: Unencrypted},
		{name: "aes-gcm is not supported", input: "aes-gcm", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestAlgorithm_WireTags(t *testing.T) {
	assert.Equal(t, uint16(0x0001), uint16(ChaCha20Poly1305))
	assert.Equal(t, uint16(0x0002), uint16(AESSIV))
}

func TestAlgorithm_KeySize(t *testing.T) {
	assert.Equal(t, 32, ChaCha20Poly1305.KeySize())
	assert.Equal(t, 32, XChaCha20Poly1305.KeySize())
	assert.Equal(t, 64, AESSIV.KeySize())
	assert.Equal(t, 0, Unencrypted.KeySize())
	assert.Equal(t, -1, Algorithm(0x7fff).KeySize())
}

func TestAlgorithm_IsDataAlgorithm(t *testing.T) {
	assert.True(t, ChaCha20Poly1305.IsDataAlgorithm())
	assert.True(t, AESSIV.IsDataAlgorithm())
	assert.True(t, XChaCha20Poly1305.IsDataAlgorithm())
	assert.False(t, Unencrypted.IsDataAlgorithm())
	assert.False(t, Algorithm(0x00ff).IsDataAlgorithm())
	assert.Equal(t, "unknown(0x00ff)", Algorithm(0x00ff).String())
}
