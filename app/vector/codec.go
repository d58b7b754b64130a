package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Vectors are stored as a little-endian blob: a uint32 dimension header
// followed by the float32 components. The explicit header catches model
// dimension changes at deserialization time instead of during scoring.

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

func Encode(v []float32) []byte {
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(v)))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(x))
	}
	return buf
}

// Decode parses a stored blob and validates it against the expected
// dimension. A corrupt blob or a dimension mismatch is an error; the
// caller excludes the offending row rather than comparing garbage.
func Decode(data []byte, wantDim int) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vector blob too short: %d bytes", len(data))
	}

	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	if len(data) != 4+4*dim {
		return nil, fmt.Errorf("vector blob length %d does not match header dimension %d", len(data), dim)
	}
	if dim != wantDim {
		return nil, fmt.Errorf("%w: stored %d, expected %d", ErrDimensionMismatch, dim, wantDim)
	}

	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}

	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("vector blob contains non-finite component")
		}
	}

	return v, nil
}
