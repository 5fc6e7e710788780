package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBlobLittleEndian(t *testing.T) {
	// 1.0 as IEEE-754 float32 is 0x3F800000.
	blob := EncodeBlob([]float32{1.0})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, blob)
}

func TestBlobRoundTrip(t *testing.T) {
	vec := []float32{0.5, -2.25, 0.0000001, 1024}

	decoded, err := DecodeBlob(EncodeBlob(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeBlobEmpty(t *testing.T) {
	decoded, err := DecodeBlob(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeBlobBadLength(t *testing.T) {
	_, err := DecodeBlob([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}
