package db

import (
	"encoding/binary"
	"math"
)

// VectorBytes encodes v as the FLOAT32 blob FT.SEARCH expects in HASH fields and KNN
// PARAMS: 4 bytes per element, little-endian.
func VectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
