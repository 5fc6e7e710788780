package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeBlob packs a vector into a little-endian float32 byte blob,
// the storage format of the embedding columns.
func EncodeBlob(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeBlob unpacks a little-endian float32 byte blob.
func DecodeBlob(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
