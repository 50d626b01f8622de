package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector serializes a float32 slice to a little-endian byte blob,
// the embedded engine's stand-in for sqlite-vec's native float32 blob
// format (not available without the cgo vec0 extension).
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("sqlite: vector blob length %d is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// cosineSimilarity returns the cosine similarity of a and b. Per the
// storage contract's resolution of the zero-norm Open Question, a
// zero-magnitude vector yields a similarity of 0 rather than NaN or an
// error.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
