package vector

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 0.999999, 0, 123.456}

	decoded, err := Decode(Encode(original), len(original))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(decoded) != len(original) {
		t.Fatalf("expected %d components, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("component %d: got %v, want %v (must round-trip bit-for-bit)", i, decoded[i], original[i])
		}
	}
}

func TestDecodeDimensionMismatch(t *testing.T) {
	blob := Encode([]float32{1, 2, 3})

	_, err := Decode(blob, 4)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDecodeCorruptBlob(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"short header", []byte{1, 0}},
		{"truncated body", Encode([]float32{1, 2, 3})[:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.blob, 3); err == nil {
				t.Error("expected error for corrupt blob")
			}
		})
	}
}

func TestDecodeRejectsNaN(t *testing.T) {
	blob := Encode([]float32{1, float32(math.NaN()), 3})
	if _, err := Decode(blob, 3); err == nil {
		t.Error("expected error for NaN component")
	}
}

func TestEmbedderInterfaceCompliance(t *testing.T) {
	var _ Embedder = (*Client)(nil)
}
